// Package models defines the wire-compatible domain types for the outing
// registration collection. JSON field names match the documents already in the
// store, so a redeploy against existing data keeps reading cleanly.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Registration is one attendee's submission, including self plus counted
// family members.
//
// Invariants:
//   - ID is opaque, immutable once assigned, unique within the collection
//   - AdultFamilyCount / ChildFamilyCount are never negative
//   - Timestamp holds epoch millis of the last successful write
//   - HasEdited starts false and flips true on the first merge into the record
type Registration struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	EnglishName      string `json:"englishName"`
	Phone            string `json:"phone"`
	AdultFamilyCount int    `json:"adultFamilyCount"`
	ChildFamilyCount int    `json:"childFamilyCount"`
	Timestamp        int64  `json:"timestamp"`
	HasEdited        bool   `json:"hasEdited"`
}

// Headcount is the number of seats this record occupies: the registrant plus
// accompanying family. Counts are re-coerced on read because the store has no
// schema enforcement.
func (r Registration) Headcount() int {
	return 1 + clampCount(r.AdultFamilyCount) + clampCount(r.ChildFamilyCount)
}

// AppConfig is the singleton settings document. It is defaulted on first read
// and overwritten wholesale by admin action; there is no per-field update.
type AppConfig struct {
	IsRegistrationOpen bool  `json:"isRegistrationOpen"`
	Deadline           int64 `json:"deadline"`
	MaxCapacity        int   `json:"maxCapacity"`
}

// DeadlineTime converts the epoch-millis deadline to time.Time.
func (c AppConfig) DeadlineTime() time.Time {
	return time.UnixMilli(c.Deadline)
}

// DefaultAppConfig builds the config served before an admin has ever saved one.
func DefaultAppConfig(deadline time.Time, capacity int) AppConfig {
	return AppConfig{
		IsRegistrationOpen: true,
		Deadline:           deadline.UnixMilli(),
		MaxCapacity:        capacity,
	}
}

// Input is a submitted registration payload before reconciliation. Counts are
// coerced (missing, malformed, or negative input becomes 0) at decode time.
type Input struct {
	Name             string    `json:"name"`
	EnglishName      string    `json:"englishName"`
	Phone            string    `json:"phone"`
	AdultFamilyCount FlexCount `json:"adultFamilyCount"`
	ChildFamilyCount FlexCount `json:"childFamilyCount"`
}

// NormalizedName returns the submitted name with surrounding whitespace
// stripped. Matching is otherwise case-sensitive and exact: two people who
// type the same name collide, which is the accepted cost of login-free edits.
func (in Input) NormalizedName() string {
	return strings.TrimSpace(in.Name)
}

// Headcount is the number of seats the submission would occupy.
func (in Input) Headcount() int {
	return 1 + int(in.AdultFamilyCount) + int(in.ChildFamilyCount)
}

// Apply overwrites the mutable fields of an existing record with the submitted
// values. ID is preserved; HasEdited and Timestamp are the caller's business.
func (in Input) Apply(r *Registration) {
	r.Name = in.NormalizedName()
	r.EnglishName = in.EnglishName
	r.Phone = in.Phone
	r.AdultFamilyCount = int(in.AdultFamilyCount)
	r.ChildFamilyCount = int(in.ChildFamilyCount)
}

// Diff lists the fields a submission would change on an existing record, as a
// human-readable string for the edit log. Returns "no material change" when
// nothing differs.
func Diff(old Registration, in Input) string {
	var changes []string
	if old.EnglishName != in.EnglishName {
		changes = append(changes, fmt.Sprintf("englishName %q -> %q", old.EnglishName, in.EnglishName))
	}
	if old.Phone != in.Phone {
		changes = append(changes, fmt.Sprintf("phone %q -> %q", old.Phone, in.Phone))
	}
	if old.AdultFamilyCount != int(in.AdultFamilyCount) {
		changes = append(changes, fmt.Sprintf("adultFamilyCount %d -> %d", old.AdultFamilyCount, int(in.AdultFamilyCount)))
	}
	if old.ChildFamilyCount != int(in.ChildFamilyCount) {
		changes = append(changes, fmt.Sprintf("childFamilyCount %d -> %d", old.ChildFamilyCount, int(in.ChildFamilyCount)))
	}
	if len(changes) == 0 {
		return "no material change"
	}
	return strings.Join(changes, ", ")
}

// FindByNormalizedName returns the first record whose name matches the
// trim-normalized submitted name. Duplicates are possible and not prevented;
// first match wins. The boolean reports whether a match was found.
func FindByNormalizedName(regs []Registration, name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i := range regs {
		if strings.TrimSpace(regs[i].Name) == name {
			return i, true
		}
	}
	return -1, false
}

// FindByID locates a record by its opaque id.
func FindByID(regs []Registration, id string) (int, bool) {
	for i := range regs {
		if regs[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
