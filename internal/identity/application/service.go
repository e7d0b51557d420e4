package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	billingApplication "github.com/sledgehq/sledge/internal/billing/application"
	billingDomain "github.com/sledgehq/sledge/internal/billing/domain"
	"github.com/sledgehq/sledge/internal/identity/domain"
	sharedApplication "github.com/sledgehq/sledge/internal/shared/application"
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/outbox"
	"github.com/sledgehq/sledge/pkg/observability"
)

// ErrInvalidCredentials is returned by Login for any mismatch.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SubscriptionAssigner gives a newly created user a subscription.
type SubscriptionAssigner interface {
	AssignSubscriptionToUser(ctx context.Context, userID int64, opts billingApplication.AssignOptions) (*billingDomain.Subscription, error)
}

// RegisterCommand contains the data needed to sign up.
type RegisterCommand struct {
	Email     string
	Password  string
	PromoCode *string
}

// RegisterResult carries the user and, separately, the outcome of the
// subscription assignment. A failed assignment never undoes the signup.
type RegisterResult struct {
	User            *domain.User
	Subscription    *billingDomain.Subscription
	SubscriptionErr error
}

// Service handles signup and login.
type Service struct {
	users      domain.UserRepository
	assigner   SubscriptionAssigner
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	logger     *slog.Logger
	hashCost   int
	now        func() time.Time
}

// NewService creates an identity service. outboxRepo, uow and logger may
// be nil.
func NewService(
	users domain.UserRepository,
	assigner SubscriptionAssigner,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:      users,
		assigner:   assigner,
		outboxRepo: outboxRepo,
		uow:        uow,
		logger:     logger,
		hashCost:   bcrypt.DefaultCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.hashCost = cost
	return s
}

// Register creates the user, then assigns a subscription outside the
// user's transaction. The returned error concerns the user only.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (RegisterResult, error) {
	const op = "register user"

	email, err := domain.NewEmail(cmd.Email)
	if err != nil {
		return RegisterResult{}, sharedDomain.InvalidArgument(op, err.Error())
	}
	if err := domain.ValidatePassword(cmd.Password); err != nil {
		return RegisterResult{}, sharedDomain.InvalidArgument(op, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.hashCost)
	if err != nil {
		return RegisterResult{}, sharedDomain.Internal(op, 0, err)
	}

	user, err := sharedApplication.WithUnitOfWorkResult(ctx, s.uow, func(txCtx context.Context) (*domain.User, error) {
		user := domain.NewUser(email, string(hash), s.now())
		if err := s.users.Create(txCtx, user); err != nil {
			return nil, err
		}
		user.RecordRegistered()
		return user, s.saveEvents(txCtx, user)
	})
	if err != nil {
		if errors.Is(err, sharedDomain.ErrConflict) {
			return RegisterResult{}, err
		}
		return RegisterResult{}, sharedDomain.Internal(op, 0, err)
	}

	ctx = observability.WithUserID(ctx, user.ID)
	s.logger.InfoContext(ctx, "user registered", "email_domain", user.Email.Domain())

	result := RegisterResult{User: user}
	if s.assigner == nil {
		return result, nil
	}

	result.Subscription, result.SubscriptionErr = s.assigner.AssignSubscriptionToUser(ctx, user.ID,
		billingApplication.AssignOptions{PromoCode: cmd.PromoCode})
	if result.SubscriptionErr != nil {
		s.logger.WarnContext(ctx, "signup completed without subscription",
			observability.ErrorKey, result.SubscriptionErr)
	}
	return result, nil
}

// Login returns the user when email and password match.
func (s *Service) Login(ctx context.Context, rawEmail, password string) (*domain.User, error) {
	email, err := domain.NewEmail(rawEmail)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, sharedDomain.Internal("login", 0, err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns the user or nil.
func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *Service) saveEvents(ctx context.Context, user *domain.User) error {
	events := user.PullDomainEvents()
	if s.outboxRepo == nil || len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, user.ID))
	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	return s.outboxRepo.SaveBatch(ctx, msgs)
}
