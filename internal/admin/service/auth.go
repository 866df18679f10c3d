package service

import (
	"context"

	authjwt "github.com/tenantdesk/tenantdesk-backend/internal/auth/jwt"
	"github.com/tenantdesk/tenantdesk-backend/pkg/actor"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/messaging"
	"github.com/tenantdesk/tenantdesk-backend/pkg/permissions"
)

const (
	msgUnauthorized  = "Unauthorized"
	msgNotSuperAdmin = "Access denied. Super admin role required."
)

// Authenticator gates the admin engine behind a verified token and the
// super-admin role
type Authenticator struct {
	verifier  authjwt.TokenVerifier
	roles     RoleStore
	required  permissions.Role
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewAuthenticator creates a new authenticator. An empty requiredRole means
// super_admin.
func NewAuthenticator(verifier authjwt.TokenVerifier, roles RoleStore, requiredRole string, publisher messaging.EventPublisher, log *logger.Logger) *Authenticator {
	required := permissions.Role(requiredRole)
	if required == "" {
		required = permissions.RoleSuperAdmin
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Authenticator{
		verifier:  verifier,
		roles:     roles,
		required:  required,
		publisher: publisher,
		logger:    log.WithComponent("authenticator"),
	}
}

// Authenticate verifies the bearer token in an Authorization header value
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*actor.Actor, error) {
	token, ok := authjwt.ExtractBearer(authorization)
	if !ok {
		return nil, errors.Unauthorized(msgUnauthorized)
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		a.logger.Debug().Err(err).Msg("token rejected")
		return nil, errors.Unauthorized(msgUnauthorized)
	}

	return &actor.Actor{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// AuthorizeSuperAdmin fails unless the actor holds the required role.
// Lookup errors deny access.
func (a *Authenticator) AuthorizeSuperAdmin(ctx context.Context, actorID string) error {
	roles, err := a.roles.RolesOf(ctx, actorID)
	if err != nil {
		a.logger.Warn().Err(err).Str("actor_id", actorID).Msg("role lookup failed")
		return errors.Forbidden(msgNotSuperAdmin)
	}
	if !permissions.HasRole(roles, a.required) {
		return errors.Forbidden(msgNotSuperAdmin)
	}
	return nil
}

// RequireSuperAdmin authenticates and authorizes in one step. Denials are
// logged and published.
func (a *Authenticator) RequireSuperAdmin(ctx context.Context, authorization string) (*actor.Actor, error) {
	act, err := a.Authenticate(ctx, authorization)
	if err != nil {
		a.denied(ctx, "", "invalid or missing credential", err)
		return nil, err
	}

	if err := a.AuthorizeSuperAdmin(ctx, act.ID); err != nil {
		a.denied(ctx, act.ID, "missing role "+string(a.required), err)
		return nil, err
	}

	return act, nil
}

func (a *Authenticator) denied(ctx context.Context, actorID, reason string, err error) {
	status := 0
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
	}

	a.logger.Warn().
		Str("actor_id", actorID).
		Int("status", status).
		Str("reason", reason).
		Msg("admin access denied")

	pubErr := a.publisher.Publish(ctx, messaging.EventAccessDenied, messaging.AccessDeniedEvent{
		UserID: actorID,
		Reason: reason,
		Status: status,
	})
	if pubErr != nil {
		a.logger.Warn().Err(pubErr).Msg("failed to publish access denied event")
	}
}
