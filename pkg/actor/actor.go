// Package actor carries the verified identity of the caller through a request.
//
// The identity is issued by the hosted authentication system; services only
// read it. Role assignments are not part of the token and are looked up by
// the services that need them.
package actor

import (
	"context"
	"fmt"
)

// SystemOrganizationID marks audit entries whose actor belongs to no organization
const SystemOrganizationID = "00000000-0000-0000-0000-000000000000"

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the subject of the verified token (auth user id)
	ID string `json:"id"`

	// Email is the actor's email address, when the token carries one
	Email string `json:"email,omitempty"`

	// Role is the coarse token role (e.g. "authenticated"), not an app_role
	Role string `json:"role,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "anonymous"
	}
	if a.Email == "" {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.ID, a.Email)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present.
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}
