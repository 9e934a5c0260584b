// Package identity holds the application-level user model shared across the
// session manager, the route guard, and the HTTP surface. The authentication
// session is a separate concept (internal/session); a profile describes who
// the user is once authenticated.
package identity

import (
	"time"

	"github.com/google/uuid"

	dErrors "imovan/pkg/domain-errors"
)

// UserType is the marketplace role a profile belongs to.
type UserType string

const (
	// UserTypeClient marks fleet-owning companies ("frotistas").
	UserTypeClient UserType = "client"
	// UserTypeProvider marks automotive service providers.
	UserTypeProvider UserType = "provider"
	// UserTypeIntegrator marks platform administrators.
	UserTypeIntegrator UserType = "integrator"
	// UserTypeAny is only valid on route descriptors, never on profiles.
	UserTypeAny UserType = "any"
)

// Valid reports whether t is a type a stored profile may carry.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeClient, UserTypeProvider, UserTypeIntegrator:
		return true
	}
	return false
}

// Profile is the application-level user record, distinct from the
// authentication session. It is fetched by ID after authentication and cached
// in memory for the session lifetime only.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	UserType  UserType  `json:"user_type"`
	PlanID    string    `json:"plan_id,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// User couples a profile with its stored credential hash. Only stores and the
// session manager see this shape; everything past login works with Profile.
type User struct {
	Profile
	PasswordHash string
}

// ProfileUpdate carries partial profile fields. Nil pointers leave the stored
// value untouched.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	PlanID    *string `json:"plan_id,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.PlanID == nil
}

// Plan is a subscription plan a client or provider profile is associated with.
type Plan struct {
	ID        string
	Name      string
	UserType  UserType
	CreatedAt time.Time
}

// NewProfileInput is validated input for creating a profile.
type NewProfileInput struct {
	Email     string
	FirstName string
	LastName  string
	UserType  UserType
	PlanID    string
}

// Validate checks required fields before the store is touched.
func (in NewProfileInput) Validate() error {
	if in.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if in.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "first name is required")
	}
	if !in.UserType.Valid() {
		return dErrors.New(dErrors.CodeValidation, "user type must be client, provider or integrator")
	}
	return nil
}
