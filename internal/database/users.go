package database

import (
	"context"
	"fmt"
	"strings"

	"campus-hub/internal/models"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// CreateUser registers a new account. The email is stored lowercased.
func CreateUser(ctx context.Context, email, password, displayName string, role models.UserRole) (models.User, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	if !strings.Contains(email, "@") || len(email) < 3 {
		return models.User{}, invalid("email", "Enter a valid email address")
	}
	if len(password) < minPasswordLen {
		return models.User{}, invalid("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	if !role.Valid() {
		return models.User{}, invalid("role", "Unknown role")
	}

	var count int64
	if err := DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return models.User{}, ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         role,
	}
	if err := DB.WithContext(ctx).Create(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks a sign-in attempt. Unknown emails and wrong
// passwords produce the same error.
func Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	err := DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if notFound(err) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func GetUser(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := DB.WithContext(ctx).First(&user, id).Error
	if notFound(err) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user %d: %w", id, err)
	}
	return user, nil
}
