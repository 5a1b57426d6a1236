package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/clinvol/identity-service/internal/db/models"
	"github.com/clinvol/identity-service/internal/identity"
	"github.com/clinvol/identity-service/internal/upstream/cognito"
)

// fakeProvider counts calls and replays canned results per operation.
type fakeProvider struct {
	registerIn    *cognito.RegisterInput
	registerCalls int
	registerErr   error
	confirmed     bool

	confirmCalls int
	confirmErr   error

	authCalls  int
	authBundle *identity.TokenBundle
	authErr    error

	refreshCalls  int
	refreshBundle *identity.TokenBundle
	refreshErr    error

	resetCalls        int
	resetErr          error
	confirmResetCalls int
	confirmResetErr   error

	deleteCalls int
	deleteEmail string
	deleteErr   error

	attrs    []identity.AccountAttribute
	attrsErr error
}

func (f *fakeProvider) Register(_ context.Context, in cognito.RegisterInput) (bool, error) {
	f.registerCalls++
	f.registerIn = &in
	return f.confirmed, f.registerErr
}

func (f *fakeProvider) ConfirmRegistration(_ context.Context, _, _ string) error {
	f.confirmCalls++
	return f.confirmErr
}

func (f *fakeProvider) Authenticate(_ context.Context, _, _ string) (*identity.TokenBundle, error) {
	f.authCalls++
	return f.authBundle, f.authErr
}

func (f *fakeProvider) Refresh(_ context.Context, _, _ string) (*identity.TokenBundle, error) {
	f.refreshCalls++
	return f.refreshBundle, f.refreshErr
}

func (f *fakeProvider) RequestPasswordReset(_ context.Context, _ string) error {
	f.resetCalls++
	return f.resetErr
}

func (f *fakeProvider) ConfirmPasswordReset(_ context.Context, _, _, _ string) error {
	f.confirmResetCalls++
	return f.confirmResetErr
}

func (f *fakeProvider) DeleteAccount(_ context.Context, email string) error {
	f.deleteCalls++
	f.deleteEmail = email
	return f.deleteErr
}

func (f *fakeProvider) FetchAccountAttributes(_ context.Context, _ string) ([]identity.AccountAttribute, error) {
	return f.attrs, f.attrsErr
}

// fakeStore records the order of store calls.
type fakeStore struct {
	createCalls int
	createUser  *models.User
	createErr   error

	findUser *models.User
	findErr  error

	removeCalls int
	removedID   uint
	removeErr   error

	order []string
}

func (f *fakeStore) Create(_ context.Context, email, firstName, lastName, status string) (*models.User, error) {
	f.createCalls++
	f.order = append(f.order, "create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createUser != nil {
		return f.createUser, nil
	}
	return &models.User{ID: 1, Email: email, FirstName: firstName, LastName: lastName, Status: status}, nil
}

func (f *fakeStore) FindByID(_ context.Context, _ uint) (*models.User, error) {
	f.order = append(f.order, "find")
	return f.findUser, f.findErr
}

func (f *fakeStore) Remove(_ context.Context, id uint) error {
	f.removeCalls++
	f.removedID = id
	f.order = append(f.order, "remove")
	return f.removeErr
}

func TestSignUp_CreatesLocalRecord(t *testing.T) {
	provider := &fakeProvider{confirmed: false}
	store := &fakeStore{}
	svc := NewService(provider, store, nil)

	user, err := svc.SignUp(context.Background(), SignUpInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Password:  "Secr3t!",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.FirstName != "Jane" || user.LastName != "Doe" || user.Email != "jane@x.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Status != models.StatusStandard {
		t.Fatalf("status = %q, want %q", user.Status, models.StatusStandard)
	}
	if provider.registerCalls != 1 || store.createCalls != 1 {
		t.Fatalf("expected exactly one provider call and one store call, got %d/%d",
			provider.registerCalls, store.createCalls)
	}
}

func TestSignUp_AdminStatus(t *testing.T) {
	provider := &fakeProvider{}
	store := &fakeStore{}
	svc := NewService(provider, store, nil)

	user, err := svc.SignUp(context.Background(), SignUpInput{
		FirstName: "Root",
		LastName:  "Admin",
		Email:     "admin@x.com",
		Password:  "Secr3t!",
		Admin:     true,
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Status != models.StatusAdmin {
		t.Fatalf("status = %q, want %q", user.Status, models.StatusAdmin)
	}
	if !provider.registerIn.Admin {
		t.Fatal("admin marker was not forwarded to the provider")
	}
}

func TestSignUp_ProviderFailureSkipsLocalCreate(t *testing.T) {
	provider := &fakeProvider{registerErr: identity.ErrDuplicateAccount}
	store := &fakeStore{}
	svc := NewService(provider, store, nil)

	_, err := svc.SignUp(context.Background(), SignUpInput{Email: "dup@x.com", Password: "p"})
	if !errors.Is(err, identity.ErrDuplicateAccount) {
		t.Fatalf("expected duplicate-account, got %v", err)
	}
	if store.createCalls != 0 {
		t.Fatal("local create must not run when provider registration fails")
	}
}

func TestSignUp_LocalFailureSurfacesAsIs(t *testing.T) {
	provider := &fakeProvider{}
	store := &fakeStore{createErr: identity.ErrPersistence}
	svc := NewService(provider, store, nil)

	_, err := svc.SignUp(context.Background(), SignUpInput{Email: "jane@x.com", Password: "p"})
	if !errors.Is(err, identity.ErrPersistence) {
		t.Fatalf("expected the persistence error untouched, got %v", err)
	}
	// No compensating provider deletion is attempted.
	if provider.deleteCalls != 0 {
		t.Fatal("sign-up must not auto-compensate the provider account")
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	provider := &fakeProvider{authErr: identity.ErrInvalidCredential}
	store := &fakeStore{}
	svc := NewService(provider, store, nil)

	bundle, err := svc.SignIn(context.Background(), "jane@x.com", "wrong")
	if !errors.Is(err, identity.ErrInvalidCredential) {
		t.Fatalf("expected invalid-credential, got %v", err)
	}
	if bundle != nil {
		t.Fatal("no bundle may be returned on failure")
	}
	if len(store.order) != 0 {
		t.Fatal("sign-in must not touch the local store")
	}
}

func TestSignIn_ReturnsBundleUnchanged(t *testing.T) {
	want := &identity.TokenBundle{
		AccessToken:  "access-token-123",
		RefreshToken: "refresh-token-456",
		IDToken:      "id-token-789",
	}
	provider := &fakeProvider{authBundle: want}
	svc := NewService(provider, &fakeStore{}, nil)

	got, err := svc.SignIn(context.Background(), "jane@x.com", "Secr3t!")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if *got != *want {
		t.Fatalf("bundle = %+v, want %+v", got, want)
	}
}

func TestRefresh_PreservesRefreshToken(t *testing.T) {
	provider := &fakeProvider{refreshBundle: &identity.TokenBundle{
		AccessToken: "new-access-token",
		IDToken:     "new-id-token",
	}}
	svc := NewService(provider, &fakeStore{}, nil)

	bundle, err := svc.Refresh(context.Background(), "old-refresh-token", "user-sub-123")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if bundle.RefreshToken != "old-refresh-token" {
		t.Fatalf("refresh token = %q, want the original carried forward", bundle.RefreshToken)
	}
	if bundle.AccessToken != "new-access-token" || bundle.IDToken != "new-id-token" {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}
}

func TestRefresh_KeepsReissuedToken(t *testing.T) {
	provider := &fakeProvider{refreshBundle: &identity.TokenBundle{
		AccessToken:  "new-access-token",
		RefreshToken: "rotated-refresh-token",
		IDToken:      "new-id-token",
	}}
	svc := NewService(provider, &fakeStore{}, nil)

	bundle, err := svc.Refresh(context.Background(), "old-refresh-token", "user-sub-123")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if bundle.RefreshToken != "rotated-refresh-token" {
		t.Fatalf("reissued token was overwritten: %q", bundle.RefreshToken)
	}
}

func TestDeleteAccount_Ordering(t *testing.T) {
	provider := &fakeProvider{}
	store := &fakeStore{findUser: &models.User{ID: 1, Email: "a@x.com"}}
	svc := NewService(provider, store, nil)

	if err := svc.DeleteAccount(context.Background(), 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if provider.deleteEmail != "a@x.com" {
		t.Fatalf("provider delete used %q, want the looked-up email", provider.deleteEmail)
	}
	if store.removeCalls != 1 || store.removedID != 1 {
		t.Fatalf("expected exactly one remove of id 1, got %d calls of id %d",
			store.removeCalls, store.removedID)
	}
	wantOrder := []string{"find", "remove"}
	if len(store.order) != 2 || store.order[0] != wantOrder[0] || store.order[1] != wantOrder[1] {
		t.Fatalf("store call order = %v, want %v", store.order, wantOrder)
	}
}

func TestDeleteAccount_ProviderFailureKeepsLocalRecord(t *testing.T) {
	provider := &fakeProvider{deleteErr: identity.ErrAccountNotFound}
	store := &fakeStore{findUser: &models.User{ID: 1, Email: "a@x.com"}}
	svc := NewService(provider, store, nil)

	err := svc.DeleteAccount(context.Background(), 1)
	if !errors.Is(err, identity.ErrAccountNotFound) {
		t.Fatalf("expected account-not-found, got %v", err)
	}
	if store.removeCalls != 0 {
		t.Fatal("local remove must not run when the provider delete fails")
	}
}

func TestDeleteAccount_LocalMiss(t *testing.T) {
	provider := &fakeProvider{}
	store := &fakeStore{findErr: identity.ErrUserNotFound}
	svc := NewService(provider, store, nil)

	err := svc.DeleteAccount(context.Background(), 42)
	if !errors.Is(err, identity.ErrUserNotFound) {
		t.Fatalf("expected user-not-found, got %v", err)
	}
	if provider.deleteCalls != 0 {
		t.Fatal("provider delete must not run when the local lookup misses")
	}
}

func TestVerifyAndPasswordFlows_Delegate(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewService(provider, &fakeStore{}, nil)
	ctx := context.Background()

	if err := svc.Verify(ctx, "jane@x.com", "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "jane@x.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	if err := svc.ConfirmForgotPassword(ctx, "jane@x.com", "123456", "NewSecr3t!"); err != nil {
		t.Fatalf("confirm forgot password: %v", err)
	}
	if provider.confirmCalls != 1 || provider.resetCalls != 1 || provider.confirmResetCalls != 1 {
		t.Fatalf("expected one call each, got %d/%d/%d",
			provider.confirmCalls, provider.resetCalls, provider.confirmResetCalls)
	}
}

func TestVerify_InvalidCode(t *testing.T) {
	provider := &fakeProvider{confirmErr: identity.ErrInvalidCode}
	svc := NewService(provider, &fakeStore{}, nil)

	if err := svc.Verify(context.Background(), "jane@x.com", "wrong"); !errors.Is(err, identity.ErrInvalidCode) {
		t.Fatalf("expected invalid-code, got %v", err)
	}
}
