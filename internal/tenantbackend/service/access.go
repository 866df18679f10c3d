package service

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/actor"
	apperrors "github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/permissions"
)

// Access scopes tenant-service calls to the authenticated actor. The
// service reads through a privileged pool, so every tenant route is checked
// here before the backend runs.
type Access struct {
	detector *ModeDetector
	callers  CallerStore
	tenants  TenantStore
	family   FamilyStore
	logger   *logger.Logger
}

// NewAccess creates the access checker over the same stores as the backend
func NewAccess(detector *ModeDetector, stores Stores, log *logger.Logger) *Access {
	if log == nil {
		log = logger.Nop()
	}
	return &Access{
		detector: detector,
		callers:  stores.Callers,
		tenants:  stores.Tenants,
		family:   stores.Family,
		logger:   log.WithComponent("tenant_access"),
	}
}

// Tenant checks that the actor on ctx may perform op on the tenant
func (a *Access) Tenant(ctx context.Context, tenantID string, op permissions.Operation) error {
	if err := checkID("tenant", tenantID); err != nil {
		return err
	}
	subject, err := a.subject(ctx)
	if err != nil {
		return err
	}

	tenant, err := a.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return a.lookupErr("get_tenant", err)
	}
	return a.decide(subject, tenant, op)
}

// FamilyMember checks op against the tenant that owns the member. Legacy
// mode has no member records, so only a caller holding some role gets
// through, to the adapter's conflict answer.
func (a *Access) FamilyMember(ctx context.Context, memberID string, op permissions.Operation) error {
	if err := checkID("family member", memberID); err != nil {
		return err
	}
	subject, err := a.subject(ctx)
	if err != nil {
		return err
	}

	if a.detector.Mode(ctx) != domain.ModeEnhanced {
		if !permissions.HasAnyRole(subject.Roles, permissions.AllRoles()...) {
			return apperrors.Forbidden("no access to this tenant")
		}
		return nil
	}

	tenantID, err := a.family.TenantOf(ctx, memberID)
	if err != nil {
		return a.lookupErr("get_family_member", err)
	}
	tenant, err := a.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return a.lookupErr("get_tenant", err)
	}
	return a.decide(subject, tenant, op)
}

func (a *Access) subject(ctx context.Context) (*permissions.Subject, error) {
	act := actor.FromContext(ctx)
	if act == nil || act.ID == "" {
		return nil, apperrors.Unauthorized("missing caller identity")
	}
	subject, err := a.callers.Subject(ctx, act.ID)
	if err != nil {
		a.logger.Error().Err(err).Str("actor_id", act.ID).Msg("caller lookup failed")
		return nil, apperrors.Internal("failed to check caller permissions")
	}
	return subject, nil
}

func (a *Access) decide(subject *permissions.Subject, tenant *domain.Tenant, op permissions.Operation) error {
	record := permissions.TenantRecord{}
	if tenant.OrganizationID != nil {
		record.OrganizationID = *tenant.OrganizationID
	}
	if tenant.UserID != nil {
		record.UserID = *tenant.UserID
	}

	if !permissions.CanAccessTenant(*subject, record, op) {
		a.logger.Warn().
			Str("actor_id", subject.UserID).
			Str("tenant_id", tenant.ID).
			Str("operation", string(op)).
			Msg("tenant access denied")
		return apperrors.Forbidden("no access to this tenant")
	}
	return nil
}

// lookupErr passes caller-facing errors (not found) through and hides the rest
func (a *Access) lookupErr(op string, err error) error {
	if isNotFound(err) {
		return err
	}
	a.logger.Error().Err(err).Str("operation", op).Msg("access lookup failed")
	return apperrors.Internal("failed to check caller permissions")
}
