// Package cognito is the thin adapter between the auth service and the
// managed identity provider. One method per provider action, one network
// round trip per call, no internal retries; every provider error code is
// translated through a finite table into the identity taxonomy.
package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	idp "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/clinvol/identity-service/internal/auth/secrethash"
	"github.com/clinvol/identity-service/internal/identity"
)

// api is the subset of the provider client the gateway calls. Narrowed
// for test injection.
type api interface {
	SignUp(ctx context.Context, in *idp.SignUpInput, optFns ...func(*idp.Options)) (*idp.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *idp.ConfirmSignUpInput, optFns ...func(*idp.Options)) (*idp.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, in *idp.InitiateAuthInput, optFns ...func(*idp.Options)) (*idp.InitiateAuthOutput, error)
	ForgotPassword(ctx context.Context, in *idp.ForgotPasswordInput, optFns ...func(*idp.Options)) (*idp.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *idp.ConfirmForgotPasswordInput, optFns ...func(*idp.Options)) (*idp.ConfirmForgotPasswordOutput, error)
	AdminDeleteUser(ctx context.Context, in *idp.AdminDeleteUserInput, optFns ...func(*idp.Options)) (*idp.AdminDeleteUserOutput, error)
	ListUsers(ctx context.Context, in *idp.ListUsersInput, optFns ...func(*idp.Options)) (*idp.ListUsersOutput, error)
}

// statusAttribute is the custom attribute carrying the role marker.
const statusAttribute = "custom:status"

// Config holds the provider connection parameters, read once at startup.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UserPoolID      string
	ClientID        string
}

// Gateway issues provider calls tagged with the derived secret hash.
type Gateway struct {
	client     api
	userPoolID string
	clientID   string
	hasher     *secrethash.Deriver
	log        *zap.Logger
}

// New builds a gateway backed by the real provider client.
func New(cfg Config, hasher *secrethash.Deriver, log *zap.Logger) (*Gateway, error) {
	if cfg.Region == "" || cfg.UserPoolID == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: provider region, user pool id and client id are required", identity.ErrConfiguration)
	}
	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	return NewWithClient(idp.NewFromConfig(awsCfg), cfg.UserPoolID, cfg.ClientID, hasher, log), nil
}

// NewWithClient builds a gateway over an injected client. Used by tests.
func NewWithClient(client api, userPoolID, clientID string, hasher *secrethash.Deriver, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		client:     client,
		userPoolID: userPoolID,
		clientID:   clientID,
		hasher:     hasher,
		log:        log,
	}
}

// RegisterInput carries the fields of a provider-side registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Admin     bool
}

// Register creates the provider-side account. The returned flag reports
// whether the provider considers the account confirmed; false means a
// verification email is on its way.
func (g *Gateway) Register(ctx context.Context, in RegisterInput) (bool, error) {
	attrs := []types.AttributeType{
		{Name: aws.String("given_name"), Value: aws.String(in.FirstName)},
		{Name: aws.String("family_name"), Value: aws.String(in.LastName)},
		{Name: aws.String("email"), Value: aws.String(in.Email)},
	}
	if in.Admin {
		attrs = append(attrs, types.AttributeType{
			Name:  aws.String(statusAttribute),
			Value: aws.String("admin"),
		})
	}

	out, err := g.client.SignUp(ctx, &idp.SignUpInput{
		ClientId:       aws.String(g.clientID),
		Username:       aws.String(in.Email),
		Password:       aws.String(in.Password),
		SecretHash:     aws.String(g.hasher.Derive(in.Email)),
		UserAttributes: attrs,
	})
	if err != nil {
		return false, translate(err)
	}

	g.log.Info("provider registration accepted",
		zap.String("email", in.Email),
		zap.Bool("confirmed", out.UserConfirmed))
	return out.UserConfirmed, nil
}

// ConfirmRegistration redeems the emailed confirmation code.
func (g *Gateway) ConfirmRegistration(ctx context.Context, email, code string) error {
	_, err := g.client.ConfirmSignUp(ctx, &idp.ConfirmSignUpInput{
		ClientId:         aws.String(g.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		SecretHash:       aws.String(g.hasher.Derive(email)),
	})
	if err != nil {
		return translate(err)
	}
	return nil
}

// Authenticate exchanges email/password for a token bundle.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*identity.TokenBundle, error) {
	out, err := g.client.InitiateAuth(ctx, &idp.InitiateAuthInput{
		ClientId: aws.String(g.clientID),
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME":    email,
			"PASSWORD":    password,
			"SECRET_HASH": g.hasher.Derive(email),
		},
	})
	if err != nil {
		return nil, translate(err)
	}
	if out.AuthenticationResult == nil {
		// Challenge flows (MFA, forced password change) are not part of
		// this pool's configuration.
		return nil, fmt.Errorf("%w: provider returned a challenge instead of tokens", identity.ErrInvalidCredential)
	}

	return &identity.TokenBundle{
		AccessToken:  aws.ToString(out.AuthenticationResult.AccessToken),
		RefreshToken: aws.ToString(out.AuthenticationResult.RefreshToken),
		IDToken:      aws.ToString(out.AuthenticationResult.IdToken),
	}, nil
}

// Refresh trades a refresh token for fresh access/identity tokens. The
// provider keys the secret hash on the username of the call, which for
// this flow is the account's subject id, not its email. The provider
// usually omits the refresh token from the response; the caller decides
// whether to carry the old one forward.
func (g *Gateway) Refresh(ctx context.Context, refreshToken, sub string) (*identity.TokenBundle, error) {
	out, err := g.client.InitiateAuth(ctx, &idp.InitiateAuthInput{
		ClientId: aws.String(g.clientID),
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
			"SECRET_HASH":   g.hasher.Derive(sub),
		},
	})
	if err != nil {
		return nil, translateRefresh(err)
	}
	if out.AuthenticationResult == nil {
		return nil, fmt.Errorf("%w: provider returned no tokens", identity.ErrInvalidToken)
	}

	return &identity.TokenBundle{
		AccessToken:  aws.ToString(out.AuthenticationResult.AccessToken),
		RefreshToken: aws.ToString(out.AuthenticationResult.RefreshToken),
		IDToken:      aws.ToString(out.AuthenticationResult.IdToken),
	}, nil
}

// RequestPasswordReset asks the provider to deliver a reset code.
func (g *Gateway) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := g.client.ForgotPassword(ctx, &idp.ForgotPasswordInput{
		ClientId:   aws.String(g.clientID),
		Username:   aws.String(email),
		SecretHash: aws.String(g.hasher.Derive(email)),
	})
	if err != nil {
		return translate(err)
	}
	return nil
}

// ConfirmPasswordReset redeems a reset code against a new password.
func (g *Gateway) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	_, err := g.client.ConfirmForgotPassword(ctx, &idp.ConfirmForgotPasswordInput{
		ClientId:         aws.String(g.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
		SecretHash:       aws.String(g.hasher.Derive(email)),
	})
	if err != nil {
		return translate(err)
	}
	return nil
}

// DeleteAccount removes the provider-side account. This is the admin
// API, authenticated by the service's own provider credentials rather
// than a secret hash.
func (g *Gateway) DeleteAccount(ctx context.Context, email string) error {
	_, err := g.client.AdminDeleteUser(ctx, &idp.AdminDeleteUserInput{
		UserPoolId: aws.String(g.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return translate(err)
	}
	g.log.Info("provider account deleted", zap.String("email", email))
	return nil
}

// FetchAccountAttributes returns the account's attribute list, in
// provider order, looked up by subject id.
func (g *Gateway) FetchAccountAttributes(ctx context.Context, sub string) ([]identity.AccountAttribute, error) {
	out, err := g.client.ListUsers(ctx, &idp.ListUsersInput{
		UserPoolId: aws.String(g.userPoolID),
		Filter:     aws.String(fmt.Sprintf("sub = %q", sub)),
		Limit:      aws.Int32(1),
	})
	if err != nil {
		return nil, translate(err)
	}
	if len(out.Users) == 0 {
		return nil, fmt.Errorf("%w: sub %s", identity.ErrAccountNotFound, sub)
	}

	attrs := make([]identity.AccountAttribute, 0, len(out.Users[0].Attributes))
	for _, a := range out.Users[0].Attributes {
		attrs = append(attrs, identity.AccountAttribute{
			Name:  aws.ToString(a.Name),
			Value: aws.ToString(a.Value),
		})
	}
	return attrs, nil
}

// providerErrorKinds is the full mapping from provider error codes to
// taxonomy kinds. Codes off this table are treated as transport-level
// failures so callers can retry the whole step.
var providerErrorKinds = map[string]error{
	"UsernameExistsException":        identity.ErrDuplicateAccount,
	"UserNotFoundException":          identity.ErrAccountNotFound,
	"UserNotConfirmedException":      identity.ErrAccountUnconfirmed,
	"NotAuthorizedException":         identity.ErrInvalidCredential,
	"PasswordResetRequiredException": identity.ErrInvalidCredential,
	"CodeMismatchException":          identity.ErrInvalidCode,
	"ExpiredCodeException":           identity.ErrCodeExpired,
	"InvalidPasswordException":       identity.ErrWeakCredential,
	"TooManyRequestsException":       identity.ErrTransport,
	"LimitExceededException":         identity.ErrTransport,
	"InternalErrorException":         identity.ErrTransport,
	"ServiceUnavailableException":    identity.ErrTransport,
}

func translate(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := providerErrorKinds[apiErr.ErrorCode()]; ok {
			return fmt.Errorf("%w: %s", kind, apiErr.ErrorMessage())
		}
		return fmt.Errorf("%w: %s: %s", identity.ErrTransport, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("%w: %v", identity.ErrTransport, err)
}

// translateRefresh narrows two codes that mean something different on
// the refresh path: an unauthorized refresh is an expired token, and a
// malformed one is an invalid token.
func translateRefresh(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotAuthorizedException":
			return fmt.Errorf("%w: %s", identity.ErrTokenExpired, apiErr.ErrorMessage())
		case "InvalidParameterException":
			return fmt.Errorf("%w: %s", identity.ErrInvalidToken, apiErr.ErrorMessage())
		}
	}
	return translate(err)
}
