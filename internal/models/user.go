package models

import (
	"net/url"
	"strings"
	"time"
)

const (
	ProviderGoogle = "google"
	ProviderEmail  = "email"
)

// User is the profile kept for a signed-in shopper, keyed by email.
type User struct {
	Email      string    `json:"email" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Picture    string    `json:"picture" bson:"picture"`
	Provider   string    `json:"provider" bson:"provider"`
	LoggedIn   bool      `json:"is_logged_in" bson:"logged_in"`
	LoggedInAt time.Time `json:"logged_in_at" bson:"logged_in_at"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// AccountType labels the kind of Google account behind the email.
func (u *User) AccountType() string {
	if strings.Contains(strings.ToLower(u.Email), "gmail.com") {
		return "Gmail"
	}
	return "Google Workspace"
}

// AvatarURL is the generated initials avatar used when no picture is known.
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=4285f4&color=fff&bold=true"
}

// Profile is the user as shown on the profile page.
type Profile struct {
	*User
	AccountType string `json:"account_type"`
}

// ToProfile attaches the derived account type.
func (u *User) ToProfile() *Profile {
	return &Profile{User: u, AccountType: u.AccountType()}
}

// GoogleLoginRequest carries the credential returned by Google Sign-In.
type GoogleLoginRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// EmailLoginRequest signs in with a Google account email only.
type EmailLoginRequest struct {
	Email string `json:"email" binding:"required"`
}

// UpdateProfileRequest edits the display name and email.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is returned by the login endpoints.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *Profile  `json:"user"`
}
