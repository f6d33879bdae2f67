package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tradegate/internal/notification"
	"tradegate/internal/notification/mocks"
	notifStore "tradegate/internal/notification/store"
	id "tradegate/pkg/domain"
)

// The dispatcher owns the queue-then-deliver contract and the retry budget,
// both of which need precise control over transport failures to exercise.

type DispatcherSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	store      *notifStore.InMemoryStore
	transport  *mocks.MockTransport
	dispatcher *notification.Dispatcher
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = notifStore.NewInMemory()
	s.transport = mocks.NewMockTransport(s.ctrl)

	var err error
	s.dispatcher, err = notification.NewDispatcher(s.store, s.transport)
	s.Require().NoError(err)
}

func (s *DispatcherSuite) enqueue(recipient string) *notification.Record {
	rec, err := s.dispatcher.Enqueue(context.Background(), recipient, notification.TemplateWelcome,
		notification.TemplateData{Name: "Sam"}, notification.SystemScope())
	s.Require().NoError(err)
	return rec
}

func (s *DispatcherSuite) TestNewDispatcher() {
	s.Run("nil store returns error", func() {
		_, err := notification.NewDispatcher(nil, s.transport)
		s.Error(err)
	})

	s.Run("nil transport returns error", func() {
		_, err := notification.NewDispatcher(s.store, nil)
		s.Error(err)
	})
}

func (s *DispatcherSuite) TestEnqueue() {
	s.Run("persists a queued record with rendered content", func() {
		rec := s.enqueue("sam@x.com")

		stored, err := s.store.FindByID(context.Background(), rec.ID)
		s.Require().NoError(err)
		s.Equal(notification.StatusQueued, stored.Status)
		s.Equal("Welcome to the marketplace", stored.Subject)
		s.Contains(stored.Body, "Sam")
		s.Zero(stored.Attempts)
	})

	s.Run("system scope carries no account link", func() {
		rec := s.enqueue("sam@x.com")
		_, ok := rec.Scope.AccountID()
		s.False(ok)
	})

	s.Run("account scope carries the owner", func() {
		owner := id.NewAccountID()
		rec, err := s.dispatcher.Enqueue(context.Background(), "sam@x.com",
			notification.TemplateAccountActivated, notification.TemplateData{Name: "Sam"},
			notification.AccountScope(owner))
		s.Require().NoError(err)

		got, ok := rec.Scope.AccountID()
		s.True(ok)
		s.Equal(owner, got)
	})
}

func (s *DispatcherSuite) TestSend() {
	ctx := context.Background()

	s.Run("successful delivery marks the record sent", func() {
		rec := s.enqueue("ok@x.com")
		s.transport.EXPECT().DeliverEmail(gomock.Any(), "ok@x.com", rec.Subject, rec.Body).Return(nil)

		s.Require().NoError(s.dispatcher.Send(ctx, rec))

		stored, err := s.store.FindByID(ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(notification.StatusSent, stored.Status)
		s.Equal(1, stored.Attempts)
		s.Empty(stored.LastError)
	})

	s.Run("failed delivery marks the record failed with the error", func() {
		rec := s.enqueue("down@x.com")
		s.transport.EXPECT().DeliverEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("connection refused"))

		s.Require().NoError(s.dispatcher.Send(ctx, rec))

		stored, err := s.store.FindByID(ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(notification.StatusFailed, stored.Status)
		s.Equal(1, stored.Attempts)
		s.Contains(stored.LastError, "connection refused")
	})
}

func (s *DispatcherSuite) TestDrainQueued() {
	ctx := context.Background()

	s.Run("attempts every queued record even when some fail", func() {
		s.enqueue("a@x.com")
		s.enqueue("b@x.com")

		s.transport.EXPECT().DeliverEmail(gomock.Any(), "a@x.com", gomock.Any(), gomock.Any()).
			Return(errors.New("boom"))
		s.transport.EXPECT().DeliverEmail(gomock.Any(), "b@x.com", gomock.Any(), gomock.Any()).
			Return(nil)

		attempted, err := s.dispatcher.DrainQueued(ctx, 10)
		s.Require().NoError(err)
		s.Equal(2, attempted)

		queued, err := s.store.ListQueued(ctx, 10)
		s.Require().NoError(err)
		s.Empty(queued)
	})
}

func (s *DispatcherSuite) TestRetryFailed() {
	ctx := context.Background()

	s.Run("a retry that succeeds recovers the record", func() {
		rec := s.enqueue("flaky@x.com")
		s.transport.EXPECT().DeliverEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("timeout"))
		s.Require().NoError(s.dispatcher.Send(ctx, rec))

		s.transport.EXPECT().DeliverEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		recovered, err := s.dispatcher.RetryFailed(ctx, 3, 10)
		s.Require().NoError(err)
		s.Equal(1, recovered)

		stored, err := s.store.FindByID(ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(notification.StatusSent, stored.Status)
		s.Equal(2, stored.Attempts)
	})

	s.Run("exhausted records are never retried again", func() {
		rec := s.enqueue("dead@x.com")
		s.transport.EXPECT().DeliverEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("hard bounce")).Times(3)

		s.Require().NoError(s.dispatcher.Send(ctx, rec))
		for range 2 {
			_, err := s.dispatcher.RetryFailed(ctx, 3, 10)
			s.Require().NoError(err)
		}

		stored, err := s.store.FindByID(ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(notification.StatusFailed, stored.Status)
		s.Equal(3, stored.Attempts)

		// Attempt budget spent: a further pass selects nothing.
		recovered, err := s.dispatcher.RetryFailed(ctx, 3, 10)
		s.Require().NoError(err)
		s.Zero(recovered)
	})
}
