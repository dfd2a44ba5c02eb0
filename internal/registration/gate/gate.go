// Package gate evaluates whether a registration attempt is currently
// permitted. The check is a pure predicate over the current config, the
// current headcount, and "now", with no side effects, so it is trivially testable
// and safe to call on every request.
package gate

import (
	"time"

	"outing/internal/platform/config"
	"outing/internal/registration/models"
)

// Reason explains a refusal. Precedence: an expired deadline wins over the
// admin pause, which wins over capacity, so the user sees the most permanent
// condition first.
type Reason string

const (
	ReasonDeadlinePassed Reason = "deadline_passed"
	ReasonPaused         Reason = "paused"
	ReasonFull           Reason = "full"
)

// Decision is the combined admission verdict.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Check combines the three admission predicates.
//
// Capacity enforcement depends on the configured mode: in blocking mode a full
// event refuses new seats; in advisory mode the capacity figure only feeds the
// progress bar and admission is unlimited.
//
// neededSeats is the headcount the attempt would add (0 for a pure edit that
// frees as many seats as it takes).
func Check(cfg models.AppConfig, currentHeadcount, neededSeats int, now time.Time, mode config.CapacityMode) Decision {
	if now.After(cfg.DeadlineTime()) {
		return Decision{Reason: ReasonDeadlinePassed}
	}
	if !cfg.IsRegistrationOpen {
		return Decision{Reason: ReasonPaused}
	}
	if mode == config.CapacityModeBlocking && currentHeadcount+neededSeats > cfg.MaxCapacity {
		return Decision{Reason: ReasonFull}
	}
	return Decision{Allowed: true}
}
