//go:build integration

package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"outing/internal/audit"
	"outing/pkg/testutil/containers"
)

const testTopic = "outing.edit-log"

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	sink     *audit.KafkaSink
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	sink, err := audit.NewKafkaSink(context.Background(), s.redpanda.Broker, testTopic, logger)
	s.Require().NoError(err)
	s.sink = sink
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Require().NoError(s.sink.Close(ctx))
	}
}

func (s *KafkaSinkSuite) TestAppendedEventsAreConsumable() {
	ctx := context.Background()

	events := []audit.Event{
		{ID: "e1", UserName: "Li Lei", Action: audit.ActionCreate, Timestamp: time.Now().UTC()},
		{ID: "e2", UserName: "Li Lei", Action: audit.ActionUpdate, Details: `phone "" -> "139"`, Timestamp: time.Now().UTC()},
		{ID: "e3", UserName: "admin", Action: audit.ActionClear, Timestamp: time.Now().UTC()},
	}
	for _, event := range events {
		s.Require().NoError(s.sink.Append(ctx, event))
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	got := make(map[string]audit.Event)
	deadline := time.Now().Add(30 * time.Second)
	for len(got) < len(events) && time.Now().Before(deadline) {
		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		fetches := consumer.PollFetches(pollCtx)
		cancel()

		fetches.EachRecord(func(record *kgo.Record) {
			var event audit.Event
			if err := json.Unmarshal(record.Value, &event); err == nil {
				got[event.ID] = event
			}
		})
	}

	s.Require().Len(got, len(events))
	s.Equal(audit.ActionCreate, got["e1"].Action)
	s.Equal(`phone "" -> "139"`, got["e2"].Details)
	s.Equal("admin", got["e3"].UserName)
}

// TestRecordsAreKeyedByUserName keeps one user's entries in one partition so
// ops tooling reads them in order.
func (s *KafkaSinkSuite) TestRecordsAreKeyedByUserName() {
	ctx := context.Background()

	s.Require().NoError(s.sink.Append(ctx, audit.Event{
		ID: "keyed", UserName: "Han Meimei", Action: audit.ActionCreate, Timestamp: time.Now().UTC(),
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		fetches := consumer.PollFetches(pollCtx)
		cancel()

		var found bool
		fetches.EachRecord(func(record *kgo.Record) {
			var event audit.Event
			if json.Unmarshal(record.Value, &event) == nil && event.ID == "keyed" {
				s.Equal("Han Meimei", string(record.Key))
				found = true
			}
		})
		if found {
			return
		}
	}
	s.Fail("keyed record not consumed before deadline")
}
