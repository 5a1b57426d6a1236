// Package handlers exposes the identity lifecycle over HTTP. Each
// handler decodes and validates its request body, delegates to the auth
// service, and translates failures through the shared error envelope.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clinvol/identity-service/internal/auth"
	"github.com/clinvol/identity-service/internal/db/models"
	"github.com/clinvol/identity-service/internal/identity"
)

var validate = validator.New()

// AuthService is the lifecycle surface the handlers call.
// Satisfied by *auth.Service.
type AuthService interface {
	SignUp(ctx context.Context, in auth.SignUpInput) (*models.User, error)
	Verify(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email, password string) (*identity.TokenBundle, error)
	Refresh(ctx context.Context, refreshToken, sub string) (*identity.TokenBundle, error)
	ForgotPassword(ctx context.Context, email string) error
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
	DeleteAccount(ctx context.Context, id uint) error
	AccountAttributes(ctx context.Context, sub string) ([]identity.AccountAttribute, error)
}

type signUpRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Admin     bool   `json:"admin"`
}

type userResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Status    string `json:"status"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// SignUpHandler registers a new account and mirrors it locally.
func SignUpHandler(svc AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signUpRequest
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}

		user, err := svc.SignUp(r.Context(), auth.SignUpInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Password:  req.Password,
			Admin:     req.Admin,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, userResponse{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Status:    user.Status,
		})
	}
}

type verifyRequest struct {
	Email            string `json:"email" validate:"required,email"`
	VerificationCode string `json:"verificationCode" validate:"required"`
}

// VerifyHandler redeems an emailed confirmation code.
func VerifyHandler(svc AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}

		if err := svc.Verify(r.Context(), req.Email, req.VerificationCode); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
	}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignInHandler authenticates and returns the token bundle.
func SignInHandler(svc AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}

		bundle, err := svc.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, bundle)
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	UserSub      string `json:"userSub" validate:"required"`
}

// RefreshHandler exchanges a refresh token for fresh tokens.
func RefreshHandler(svc AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}

		bundle, err := svc.Refresh(r.Context(), req.RefreshToken, req.UserSub)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, bundle)
	}
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordHandler triggers provider-side reset code delivery.
func ForgotPasswordHandler(svc AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordRequest
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}

		if err := svc.ForgotPassword(r.Context(), req.Email); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "code_sent"})
	}
}

type confirmPasswordRequest struct {
	Email            string `json:"email" validate:"required,email"`
	ConfirmationCode string `json:"confirmationCode" validate:"required"`
	NewPassword      string `json:"newPassword" validate:"required,min=8"`
}

// ConfirmPasswordHandler redeems a reset code against a new password.
func ConfirmPasswordHandler(svc AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmPasswordRequest
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}

		if err := svc.ConfirmForgotPassword(r.Context(), req.Email, req.ConfirmationCode, req.NewPassword); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "password_reset"})
	}
}

type deleteRequest struct {
	UserID uint `json:"userId" validate:"required"`
}

// DeleteHandler removes the account at the provider and then locally.
func DeleteHandler(svc AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}

		if err := svc.DeleteAccount(r.Context(), req.UserID); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// AccountAttributesHandler returns the provider-side attributes for a
// subject id.
func AccountAttributesHandler(svc AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := chi.URLParam(r, "sub")
		if sub == "" {
			writeBadRequest(w, r, "missing subject id")
			return
		}

		attrs, err := svc.AccountAttributes(r.Context(), sub)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, attrs)
	}
}
