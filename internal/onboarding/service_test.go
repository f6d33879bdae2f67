package onboarding_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tradegate/internal/account"
	accstore "tradegate/internal/account/store"
	"tradegate/internal/audit"
	auditstore "tradegate/internal/audit/store"
	"tradegate/internal/auth"
	"tradegate/internal/document"
	"tradegate/internal/document/artifact"
	docstore "tradegate/internal/document/store"
	"tradegate/internal/notification"
	notifmocks "tradegate/internal/notification/mocks"
	notifstore "tradegate/internal/notification/store"
	"tradegate/internal/onboarding"
	"tradegate/internal/token"
	tokenstore "tradegate/internal/token/store"
	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
	txcontext "tradegate/pkg/platform/tx"
)

type ServiceSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	now  time.Time

	accounts      *accstore.InMemoryStore
	docs          *docstore.InMemoryStore
	notifications *notifstore.InMemoryStore
	auditStore    *auditstore.InMemoryStore
	service       *onboarding.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.now = time.Now()

	s.accounts = accstore.NewInMemory()
	s.docs = docstore.NewInMemory()
	s.notifications = notifstore.NewInMemory()
	s.auditStore = auditstore.NewInMemory()

	clock := func() time.Time { return s.now }

	issuer := token.NewIssuer(
		tokenstore.NewInMemoryCodeStore(),
		tokenstore.NewInMemoryTokenStore(),
		10*time.Minute,
		token.WithClock(clock),
	)

	docService, err := document.New(s.docs, artifact.NewInMemoryStorage(), document.WithClock(clock))
	s.Require().NoError(err)

	dispatcher, err := notification.NewDispatcher(s.notifications, notifmocks.NewMockTransport(s.ctrl))
	s.Require().NoError(err)

	s.service, err = onboarding.New(
		s.accounts,
		docService,
		s.docs,
		issuer,
		auth.NewBcryptHasher(),
		dispatcher,
		audit.NewPublisher(s.auditStore),
		txcontext.NopRunner{},
		onboarding.WithClock(clock),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

// issuedCode digs the 6-digit code out of the most recent verification email.
func (s *ServiceSuite) issuedCode(email string) string {
	queued, err := s.notifications.ListQueued(context.Background(), 100)
	s.Require().NoError(err)
	for i := len(queued) - 1; i >= 0; i-- {
		if queued[i].Recipient == email && queued[i].Template == notification.TemplateVerificationCode {
			return extractDigits(queued[i].Body, 6)
		}
	}
	s.FailNow("no verification code queued for " + email)
	return ""
}

func extractDigits(body string, n int) string {
	run := 0
	for i := 0; i < len(body); i++ {
		if body[i] >= '0' && body[i] <= '9' {
			run++
			if run == n {
				return body[i-n+1 : i+1]
			}
		} else {
			run = 0
		}
	}
	return ""
}

func (s *ServiceSuite) register(email string, role account.Role) *account.Account {
	ctx := context.Background()
	s.Require().NoError(s.service.RequestEmailVerification(ctx, email, role, "valid-password"))
	acct, err := s.service.ConfirmEmailVerification(ctx, email, s.issuedCode(email))
	s.Require().NoError(err)
	return acct
}

func (s *ServiceSuite) submit(accountID id.AccountID, kind document.Kind) *document.Document {
	doc, err := s.service.SubmitDocument(context.Background(), accountID, kind, document.Upload{
		Content:  []byte("%PDF-1.4 stub"),
		MimeType: "application/pdf",
		Filename: string(kind) + ".pdf",
	}, document.StandardUploadPolicy())
	s.Require().NoError(err)
	return doc
}

func (s *ServiceSuite) TestBuyerRegistration() {
	ctx := context.Background()

	s.Run("buyer activates straight after email proof", func() {
		acct := s.register("buyer@shop.fr", account.RoleBuyer)
		s.Equal(account.StatusActive, acct.Status)
		s.True(acct.EmailVerified)

		events := s.auditStore.Events()
		s.Require().Len(events, 2)
		s.Equal(audit.ActionAccountRegistered, events[0].Action)
		s.Equal(audit.ActionAccountActivated, events[1].Action)
	})

	s.Run("a verified email cannot register again", func() {
		err := s.service.RequestEmailVerification(ctx, "buyer@shop.fr", account.RoleBuyer, "valid-password")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestRequestEmailVerificationValidation() {
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		role     account.Role
		password string
	}{
		{"malformed email", "not-an-email", account.RoleBuyer, "valid-password"},
		{"admin role", "root@shop.fr", account.RoleAdmin, "valid-password"},
		{"unknown role", "x@shop.fr", account.Role("wholesaler"), "valid-password"},
		{"weak password", "x@shop.fr", account.RoleBuyer, "short"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			err := s.service.RequestEmailVerification(ctx, tc.email, tc.role, tc.password)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *ServiceSuite) TestVerificationCodes() {
	ctx := context.Background()

	s.Run("wrong code is refused", func() {
		s.Require().NoError(s.service.RequestEmailVerification(ctx, "a@shop.fr", account.RoleBuyer, "valid-password"))
		_, err := s.service.ConfirmEmailVerification(ctx, "a@shop.fr", "000000")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("expired code never verifies", func() {
		s.Require().NoError(s.service.RequestEmailVerification(ctx, "b@shop.fr", account.RoleBuyer, "valid-password"))
		code := s.issuedCode("b@shop.fr")

		s.advance(11 * time.Minute)
		_, err := s.service.ConfirmEmailVerification(ctx, "b@shop.fr", code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("reissue invalidates the previous code", func() {
		s.Require().NoError(s.service.RequestEmailVerification(ctx, "c@shop.fr", account.RoleBuyer, "valid-password"))
		first := s.issuedCode("c@shop.fr")

		s.Require().NoError(s.service.RequestEmailVerification(ctx, "c@shop.fr", account.RoleBuyer, "valid-password"))
		second := s.issuedCode("c@shop.fr")

		if first != second {
			_, err := s.service.ConfirmEmailVerification(ctx, "c@shop.fr", first)
			s.Require().Error(err)
		}
		_, err := s.service.ConfirmEmailVerification(ctx, "c@shop.fr", second)
		s.NoError(err)
	})

	s.Run("a code is consumed exactly once", func() {
		s.Require().NoError(s.service.RequestEmailVerification(ctx, "d@shop.fr", account.RoleBuyer, "valid-password"))
		code := s.issuedCode("d@shop.fr")

		_, err := s.service.ConfirmEmailVerification(ctx, "d@shop.fr", code)
		s.Require().NoError(err)
		_, err = s.service.ConfirmEmailVerification(ctx, "d@shop.fr", code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestSupplierDocumentFlow() {
	ctx := context.Background()
	acct := s.register("vendor@acme.fr", account.RoleSupplier)
	s.Equal(account.StatusAwaitingDocuments, acct.Status)

	reviewer := id.NewAccountID()

	s.Run("status is incomplete until every required kind is submitted", func() {
		status, err := s.service.GetValidationStatus(ctx, acct.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.GlobalIncomplete, status.Global)
		s.Len(status.Missing, 3)

		s.submit(acct.ID, document.KindRegistreCommerce)
		s.submit(acct.ID, document.KindPieceIdentite)

		status, err = s.service.GetValidationStatus(ctx, acct.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.GlobalIncomplete, status.Global)
		s.Equal([]document.Kind{document.KindJustificatifDomicile}, status.Missing)

		s.submit(acct.ID, document.KindJustificatifDomicile)

		status, err = s.service.GetValidationStatus(ctx, acct.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.GlobalPending, status.Global)
	})

	s.Run("approvals out of order activate only on the last required one", func() {
		docs, err := s.service.GetAccountDocuments(ctx, acct.ID)
		s.Require().NoError(err)
		s.Require().Len(docs, 3)

		// Approve in reverse submission order.
		for i := len(docs) - 1; i >= 1; i-- {
			_, err := s.service.DecideDocument(ctx, docs[i].ID, reviewer, onboarding.DecisionApprove, "")
			s.Require().NoError(err)

			current, err := s.accounts.FindByID(ctx, acct.ID)
			s.Require().NoError(err)
			s.Equal(account.StatusAwaitingDocuments, current.Status)
		}

		_, err = s.service.DecideDocument(ctx, docs[0].ID, reviewer, onboarding.DecisionApprove, "")
		s.Require().NoError(err)

		current, err := s.accounts.FindByID(ctx, acct.ID)
		s.Require().NoError(err)
		s.Equal(account.StatusActive, current.Status)
		s.True(current.EmailVerified)

		status, err := s.service.GetValidationStatus(ctx, acct.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.GlobalApproved, status.Global)
	})

	s.Run("activation is audited and announced", func() {
		events := s.auditStore.Events()
		s.Equal(audit.ActionAccountActivated, events[len(events)-1].Action)

		queued, err := s.notifications.ListQueued(ctx, 100)
		s.Require().NoError(err)
		var kinds []notification.TemplateKind
		for _, rec := range queued {
			kinds = append(kinds, rec.Template)
		}
		s.Contains(kinds, notification.TemplateAccountActivated)
	})
}

func (s *ServiceSuite) TestRejectionSuspends() {
	ctx := context.Background()
	acct := s.register("vendor@acme.fr", account.RoleSupplier)
	reviewer := id.NewAccountID()

	doc := s.submit(acct.ID, document.KindRegistreCommerce)
	s.submit(acct.ID, document.KindPieceIdentite)
	s.submit(acct.ID, document.KindJustificatifDomicile)

	_, err := s.service.DecideDocument(ctx, doc.ID, reviewer, onboarding.DecisionReject, "extract is older than three months")
	s.Require().NoError(err)

	current, err := s.accounts.FindByID(ctx, acct.ID)
	s.Require().NoError(err)
	s.Equal(account.StatusSuspended, current.Status)
	s.Equal("extract is older than three months", current.SuspensionReason)
	s.Equal(reviewer, current.SuspendedBy)
	s.NotNil(current.SuspendedAt)

	status, err := s.service.GetValidationStatus(ctx, acct.ID)
	s.Require().NoError(err)
	s.Equal(onboarding.GlobalRejected, status.Global)
	s.Empty(status.Missing)

	queued, err := s.notifications.ListQueued(ctx, 100)
	s.Require().NoError(err)
	var kinds []notification.TemplateKind
	for _, rec := range queued {
		kinds = append(kinds, rec.Template)
	}
	s.Contains(kinds, notification.TemplateDocumentDecision)
	s.Contains(kinds, notification.TemplateAccountSuspended)
}

func (s *ServiceSuite) TestDecideDocumentGuards() {
	ctx := context.Background()
	acct := s.register("vendor@acme.fr", account.RoleSupplier)
	reviewer := id.NewAccountID()
	doc := s.submit(acct.ID, document.KindPieceIdentite)

	s.Run("unknown document", func() {
		_, err := s.service.DecideDocument(ctx, id.NewDocumentID(), reviewer, onboarding.DecisionApprove, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejection requires a comment", func() {
		_, err := s.service.DecideDocument(ctx, doc.ID, reviewer, onboarding.DecisionReject, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid decision", func() {
		_, err := s.service.DecideDocument(ctx, doc.ID, reviewer, onboarding.Decision("defer"), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("a decided document cannot be decided again", func() {
		_, err := s.service.DecideDocument(ctx, doc.ID, reviewer, onboarding.DecisionApprove, "")
		s.Require().NoError(err)
		_, err = s.service.DecideDocument(ctx, doc.ID, reviewer, onboarding.DecisionApprove, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestSubmitDocumentGuards() {
	ctx := context.Background()

	s.Run("unknown account", func() {
		_, err := s.service.SubmitDocument(ctx, id.NewAccountID(), document.KindPieceIdentite, document.Upload{
			Content: []byte("x"), MimeType: "application/pdf", Filename: "x.pdf",
		}, document.StandardUploadPolicy())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("kind outside the role policy", func() {
		acct := s.register("buyer@shop.fr", account.RoleBuyer)
		_, err := s.service.SubmitDocument(ctx, acct.ID, document.KindRegistreCommerce, document.Upload{
			Content: []byte("x"), MimeType: "application/pdf", Filename: "x.pdf",
		}, document.StandardUploadPolicy())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("resubmission keeps one record per kind and resets review", func() {
		acct := s.register("vendor@acme.fr", account.RoleSupplier)
		first := s.submit(acct.ID, document.KindRegistreCommerce)
		second := s.submit(acct.ID, document.KindRegistreCommerce)

		s.Equal(first.ID, second.ID)
		s.Equal(document.StatusPending, second.Status)

		docs, err := s.service.GetAccountDocuments(ctx, acct.ID)
		s.Require().NoError(err)
		s.Len(docs, 1)
	})
}

func (s *ServiceSuite) TestRequiredDocumentsTable() {
	reqs := s.service.GetRequiredDocuments(account.RoleSupplier)
	s.Len(reqs, 4)
	s.Equal(document.KindRegistreCommerce, reqs[0].Kind)

	s.Empty(s.service.GetRequiredDocuments(account.RoleBuyer))
}
