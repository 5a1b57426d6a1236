package models

import "time"

// User status values. Standard users apply through the public flow;
// admin accounts are provisioned with the administrative marker.
const (
	StatusStandard = "standard"
	StatusAdmin    = "admin"
)

// User mirrors the identity-provider account for application use. The
// provider owns the credential and confirmation state; this record only
// exists once provider-side registration has been accepted.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	FirstName string
	LastName  string
	Status    string `gorm:"default:standard"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
