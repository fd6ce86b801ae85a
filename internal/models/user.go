package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleCollaborator UserRole = "collaborator"
	RoleViewer       UserRole = "viewer"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCollaborator, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may create or edit documents.
func (r UserRole) CanWrite() bool {
	return r == RoleAdmin || r == RoleCollaborator
}

type User struct {
	gorm.Model
	Email        string   `gorm:"uniqueIndex;size:255;not null" json:"email"`
	DisplayName  string   `gorm:"size:255" json:"displayName"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`
}

// Name is what gets shown in the shell and stamped into new logs.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
