// Package auth sequences identity-provider calls and local-store
// mutations for each lifecycle operation. The ordering rule is fixed:
// the provider mutates first, the local store second, so the local
// record set can always be rebuilt from the provider.
package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/clinvol/identity-service/internal/db/models"
	"github.com/clinvol/identity-service/internal/identity"
	"github.com/clinvol/identity-service/internal/upstream/cognito"
)

// Provider is the identity-provider gateway the service drives.
// Satisfied by *cognito.Gateway.
type Provider interface {
	Register(ctx context.Context, in cognito.RegisterInput) (bool, error)
	ConfirmRegistration(ctx context.Context, email, code string) error
	Authenticate(ctx context.Context, email, password string) (*identity.TokenBundle, error)
	Refresh(ctx context.Context, refreshToken, sub string) (*identity.TokenBundle, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
	DeleteAccount(ctx context.Context, email string) error
	FetchAccountAttributes(ctx context.Context, sub string) ([]identity.AccountAttribute, error)
}

// UserStore is the slice of the local store the lifecycle needs.
// Satisfied by *db.Users.
type UserStore interface {
	Create(ctx context.Context, email, firstName, lastName, status string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	Remove(ctx context.Context, id uint) error
}

// Service coordinates the provider and the local store.
type Service struct {
	provider Provider
	users    UserStore
	log      *zap.Logger
}

// NewService wires the orchestrator. A nil logger is replaced with a nop.
func NewService(provider Provider, users UserStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{provider: provider, users: users, log: log}
}

// SignUpInput carries a sign-up request.
type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Admin     bool
}

// SignUp registers the account at the provider and then mirrors it
// locally. A provider failure aborts before any local write. A local
// failure after a successful provider registration is surfaced as-is:
// the provider account exists, the local record does not, and the
// caller owns the cleanup or retry of that window.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	confirmed, err := s.provider.Register(ctx, cognito.RegisterInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
		Admin:     in.Admin,
	})
	if err != nil {
		return nil, err
	}

	status := models.StatusStandard
	if in.Admin {
		status = models.StatusAdmin
	}

	user, err := s.users.Create(ctx, in.Email, in.FirstName, in.LastName, status)
	if err != nil {
		s.log.Error("local create failed after provider registration; provider account is orphaned",
			zap.String("email", in.Email),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("user signed up",
		zap.Uint("id", user.ID),
		zap.String("email", user.Email),
		zap.Bool("confirmed", confirmed))
	return user, nil
}

// Verify redeems the registration confirmation code. No local mutation.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	return s.provider.ConfirmRegistration(ctx, email, code)
}

// SignIn authenticates against the provider and returns the token
// bundle unchanged.
func (s *Service) SignIn(ctx context.Context, email, password string) (*identity.TokenBundle, error) {
	return s.provider.Authenticate(ctx, email, password)
}

// Refresh exchanges a refresh token for fresh tokens. The provider
// normally omits the refresh token from its response; the original one
// is carried forward unless the provider reissued it.
func (s *Service) Refresh(ctx context.Context, refreshToken, sub string) (*identity.TokenBundle, error) {
	bundle, err := s.provider.Refresh(ctx, refreshToken, sub)
	if err != nil {
		return nil, err
	}
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = refreshToken
	}
	return bundle, nil
}

// ForgotPassword triggers provider-side delivery of a reset code.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	return s.provider.RequestPasswordReset(ctx, email)
}

// ConfirmForgotPassword redeems a reset code against a new password.
func (s *Service) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	return s.provider.ConfirmPasswordReset(ctx, email, code, newPassword)
}

// DeleteAccount removes the account at the provider first and only then
// drops the local record. A provider failure leaves the local record
// intact, so the store never loses a user whose provider account still
// exists.
func (s *Service) DeleteAccount(ctx context.Context, id uint) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.provider.DeleteAccount(ctx, user.Email); err != nil {
		return err
	}

	if err := s.users.Remove(ctx, id); err != nil {
		s.log.Error("local remove failed after provider deletion; local record is stale",
			zap.Uint("id", id),
			zap.String("email", user.Email),
			zap.Error(err))
		return err
	}

	s.log.Info("user deleted", zap.Uint("id", id), zap.String("email", user.Email))
	return nil
}

// AccountAttributes returns the provider-side attribute list for a
// subject id.
func (s *Service) AccountAttributes(ctx context.Context, sub string) ([]identity.AccountAttribute, error) {
	return s.provider.FetchAccountAttributes(ctx, sub)
}
