// Package service authenticates users with bcrypt password hashes and
// bearer tokens, and manages the user accounts staff records link to.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"orgstructure/internal/auth/device"
	authmodels "orgstructure/internal/auth/models"
	"orgstructure/internal/auth/token"
	"orgstructure/internal/crud"
	"orgstructure/internal/models"
	"orgstructure/internal/platform/metrics"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/email"
	"orgstructure/pkg/platform/validation"
	"orgstructure/pkg/requestcontext"
)

const (
	tokenType         = "bearer"
	minPasswordLength = 8
)

type Service struct {
	runner  *crud.Runner
	users   *crud.Resource[models.User, *models.User]
	tokens  *token.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
	cost    int

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

func New(runner *crud.Runner, tokens *token.Service, opts ...Option) *Service {
	s := &Service{
		runner: runner,
		tokens: tokens,
		logger: runner.Logger(),
		cost:   bcrypt.DefaultCost,
		users: crud.NewResource[models.User](runner, "user", storage.Gateway.Users, crud.Hooks[models.User]{
			BeforeDelete: unlinkStaff,
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// unlinkStaff clears staff.user_id for the deleted account.
func unlinkStaff(ctx context.Context, tx storage.Gateway, u *models.User) error {
	_, err := tx.Staff().SetWhere(ctx, "user_id", nil, storage.Eq{Field: "user_id", Value: u.ID})
	return err
}

// HashPassword returns the bcrypt hash of password at the given cost.
func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return string(b), nil
}

// Login checks the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, creds authmodels.Credentials) (*authmodels.Token, error) {
	addr := email.Normalize(creds.Username)
	ua := requestcontext.UserAgent(ctx)
	attrs := []any{
		"email", addr,
		"client_ip", requestcontext.ClientIP(ctx),
		"device", device.ParseUserAgent(ua),
	}
	if device.IsBot(ua) {
		attrs = append(attrs, "bot", true)
	}

	user, err := s.users.Find(ctx, storage.Eq{Field: "email", Value: addr})
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}
	if user == nil || !s.checkPassword(user, creds.Password) {
		s.metrics.IncrementLogin("failure")
		s.logAudit(ctx, "login_failed", attrs...)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "incorrect email or password")
	}
	if !user.IsActive {
		s.metrics.IncrementLogin("inactive")
		s.logAudit(ctx, "login_rejected_inactive", attrs...)
		return nil, dErrors.New(dErrors.CodeForbidden, "inactive user")
	}

	signed, err := s.tokens.Issue(user.Email, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementLogin("success")
	s.logAudit(ctx, "login_succeeded", append(attrs, "user_id", user.ID)...)
	return &authmodels.Token{AccessToken: signed, TokenType: tokenType}, nil
}

// checkPassword compares against a dummy hash when user is nil so unknown
// emails cost as much as wrong passwords.
func (s *Service) checkPassword(user *models.User, password string) bool {
	if user == nil {
		s.dummyOnce.Do(func() {
			s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), s.cost)
		})
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) == nil
}

// Authenticate resolves a bearer token to an active principal.
func (s *Service) Authenticate(ctx context.Context, raw string) (requestcontext.Actor, error) {
	subject, err := s.tokens.Subject(raw)
	if err != nil {
		return requestcontext.Actor{}, err
	}
	user, err := s.users.Find(ctx, storage.Eq{Field: "email", Value: subject})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return requestcontext.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "could not validate credentials")
		}
		return requestcontext.Actor{}, err
	}
	if !user.IsActive {
		return requestcontext.Actor{}, dErrors.New(dErrors.CodeForbidden, "inactive user")
	}
	return requestcontext.Actor{UserID: user.ID, Email: user.Email, IsSuperuser: user.IsSuperuser}, nil
}

// Register creates an active, non-superuser account.
func (s *Service) Register(ctx context.Context, in authmodels.Register) (*models.User, error) {
	return s.create(ctx, in, true, false)
}

// CreateUser provisions an account on behalf of a superuser.
func (s *Service) CreateUser(ctx context.Context, in authmodels.CreateUser) (*models.User, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return s.create(ctx, in.Register, active, in.IsSuperuser)
}

func (s *Service) create(ctx context.Context, in authmodels.Register, active, superuser bool) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, &models.User{
		Email:          email.Normalize(in.Email),
		HashedPassword: hash,
		FullName:       in.FullName,
		IsActive:       active,
		IsSuperuser:    superuser,
	})
}

// Me returns the account of the authenticated principal.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	actor := requestcontext.Principal(ctx)
	if actor.UserID == 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}
	return s.users.Get(ctx, actor.UserID)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.users.Get(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, q storage.Query) ([]*models.User, int, error) {
	return s.users.List(ctx, q)
}

func (s *Service) UpdateUser(ctx context.Context, id int64, in authmodels.UpdateUser) (*models.User, error) {
	var hash string
	if in.Password.Set {
		if len(in.Password.Value) < minPasswordLength {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid payload").WithDetails([]validation.FieldError{
				{Field: "password", Message: "must be at least 8 characters"},
			})
		}
		var err error
		if hash, err = HashPassword(in.Password.Value, s.cost); err != nil {
			return nil, err
		}
	}
	return s.users.Update(ctx, id, func(u *models.User) {
		in.FullName.ApplyTo(&u.FullName)
		in.IsActive.ApplyTo(&u.IsActive)
		in.IsSuperuser.ApplyTo(&u.IsSuperuser)
		if hash != "" {
			u.HashedPassword = hash
		}
	})
}

// DeleteUser removes an account and unlinks its staff records. A
// superuser cannot delete their own account.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if requestcontext.Principal(ctx).UserID == id {
		return dErrors.New(dErrors.CodeForbidden, "superusers are not allowed to delete themselves")
	}
	_, err := s.users.Delete(ctx, id)
	return err
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}
