// Package db owns the local user records mirrored from the identity
// provider. Scope is deliberately narrow: create, find-by-id, remove —
// exactly what the identity lifecycle needs.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinvol/identity-service/internal/db/models"
	"github.com/clinvol/identity-service/internal/identity"
	"gorm.io/gorm"
)

// Users persists local user records.
type Users struct {
	db *gorm.DB
}

// NewUsers wraps an initialized gorm handle.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Create persists a new user record. The unique email index is the only
// concurrency control; a constraint violation surfaces as a persistence
// failure like any other store error.
func (u *Users) Create(ctx context.Context, email, firstName, lastName, status string) (*models.User, error) {
	user := models.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Status:    status,
	}
	if err := u.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("%w: create user: %v", identity.ErrPersistence, err)
	}
	return &user, nil
}

// FindByID returns the user with the given id.
func (u *Users) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", identity.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("%w: find user %d: %v", identity.ErrPersistence, id, err)
	}
	return &user, nil
}

// Remove deletes the user with the given id. Removing a missing id is an
// error, not a no-op: the caller looked the record up first and a miss
// here means the two stores disagree.
func (u *Users) Remove(ctx context.Context, id uint) error {
	res := u.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("%w: remove user %d: %v", identity.ErrPersistence, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", identity.ErrUserNotFound, id)
	}
	return nil
}
