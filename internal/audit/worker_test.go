package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tradegate/internal/audit"
	"tradegate/internal/audit/store"
	"tradegate/internal/platform/kafka"
	id "tradegate/pkg/domain"
)

type fakeSink struct {
	batches [][]kafka.Message
	err     error
}

func (f *fakeSink) Publish(_ context.Context, msgs []kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}

type RelaySuite struct {
	suite.Suite
	store     *store.InMemoryStore
	sink      *fakeSink
	publisher *audit.Publisher
	worker    *audit.Worker
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.store = store.NewInMemory()
	s.sink = &fakeSink{}
	s.publisher = audit.NewPublisher(s.store)
	s.worker = audit.NewWorker(s.store, s.sink, time.Minute)
}

func (s *RelaySuite) emit(action audit.Action, accountID id.AccountID) {
	s.Require().NoError(s.publisher.Emit(context.Background(), audit.Event{
		Action:    action,
		AccountID: accountID,
		Subject:   "onboarding",
	}))
}

func (s *RelaySuite) TestEmitRequiresAction() {
	err := s.publisher.Emit(context.Background(), audit.Event{})
	s.Error(err)
}

func (s *RelaySuite) TestRelayPublishesAndMarks() {
	ctx := context.Background()
	accountID := id.NewAccountID()
	s.emit(audit.ActionAccountActivated, accountID)
	s.emit(audit.ActionLogin, accountID)

	s.Require().NoError(s.worker.RelayOnce(ctx))
	s.Require().Len(s.sink.batches, 1)
	s.Len(s.sink.batches[0], 2)
	s.Equal(accountID.String(), string(s.sink.batches[0][0].Key))

	// Nothing left after a successful relay.
	s.Require().NoError(s.worker.RelayOnce(ctx))
	s.Len(s.sink.batches, 1)
}

func (s *RelaySuite) TestFailedPublishKeepsBatchPending() {
	ctx := context.Background()
	s.emit(audit.ActionAccountSuspended, id.NewAccountID())

	s.sink.err = errors.New("broker unavailable")
	s.Error(s.worker.RelayOnce(ctx))

	// The entry survives for the next tick.
	s.sink.err = nil
	s.Require().NoError(s.worker.RelayOnce(ctx))
	s.Require().Len(s.sink.batches, 1)
	s.Len(s.sink.batches[0], 1)
}

func (s *RelaySuite) TestTimestampDefaulted() {
	s.emit(audit.ActionEmailVerified, id.NewAccountID())
	events := s.store.Events()
	s.Require().Len(events, 1)
	s.False(events[0].Timestamp.IsZero())
}
