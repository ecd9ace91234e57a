package auth

import (
	"time"

	fbauth "firebase.google.com/go/v4/auth"
)

// SignUpRequest captures a new customer account.
type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url"`
}

// User is the public view of a Firebase account.
type User struct {
	UID           string     `json:"uid"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name,omitempty"`
	PhotoURL      string     `json:"photo_url,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	Admin         bool       `json:"admin"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// Identity is the verified caller behind an ID token.
type Identity struct {
	UID   string
	Email string
	Admin bool
}

func fromRecord(rec *fbauth.UserRecord, admin bool) *User {
	if rec == nil || rec.UserInfo == nil {
		return nil
	}
	u := &User{
		UID:           rec.UID,
		Email:         rec.Email,
		DisplayName:   rec.DisplayName,
		PhotoURL:      rec.PhotoURL,
		EmailVerified: rec.EmailVerified,
		Admin:         admin || claimIsTrue(rec.CustomClaims, adminClaim),
	}
	if rec.UserMetadata != nil {
		u.CreatedAt = millis(rec.UserMetadata.CreationTimestamp)
		u.LastLoginAt = millis(rec.UserMetadata.LastLogInTimestamp)
	}
	return u
}

func millis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func claimIsTrue(claims map[string]interface{}, key string) bool {
	v, ok := claims[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
