package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TestJWTSecret signs tokens in tests
const TestJWTSecret = "test-secret-with-enough-length-for-hs256"

// FixtureFactory inserts rows for integration tests with sensible defaults
type FixtureFactory struct {
	db       *sqlx.DB
	sequence int
}

// NewFixtureFactory creates a new fixture factory writing through db
func NewFixtureFactory(db *sqlx.DB) *FixtureFactory {
	return &FixtureFactory{db: db}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Organization inserts an organization and returns its id
func (f *FixtureFactory) Organization(t *testing.T, ctx context.Context) string {
	t.Helper()
	n := f.nextSeq()
	return f.insertReturningID(t, ctx,
		`INSERT INTO organizations (name, slug) VALUES ($1, $2) RETURNING id`,
		fmt.Sprintf("Organization %d", n), fmt.Sprintf("org-%d-%s", n, uuid.NewString()[:8]))
}

// User creates a profile (optionally tied to orgID) and role assignments.
// It returns the generated user id.
func (f *FixtureFactory) User(t *testing.T, ctx context.Context, orgID string, roles ...string) string {
	t.Helper()
	userID := uuid.NewString()
	n := f.nextSeq()

	var org any
	if orgID != "" {
		org = orgID
	}
	f.exec(t, ctx,
		`INSERT INTO profiles (user_id, organization_id, full_name, email) VALUES ($1, $2, $3, $4)`,
		userID, org, fmt.Sprintf("User %d", n), fmt.Sprintf("user%d@example.com", n))

	for _, role := range roles {
		f.exec(t, ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, userID, role)
	}
	return userID
}

// Unit inserts a unit and returns its id
func (f *FixtureFactory) Unit(t *testing.T, ctx context.Context, orgID string) string {
	t.Helper()
	n := f.nextSeq()
	return f.insertReturningID(t, ctx,
		`INSERT INTO units (organization_id, unit_number, floor, area_sqft) VALUES ($1, $2, $3, $4) RETURNING id`,
		orgID, fmt.Sprintf("U-%d", n), 1+n%5, "650.00")
}

// Tenant inserts a tenant living in unitID and returns its id
func (f *FixtureFactory) Tenant(t *testing.T, ctx context.Context, orgID, unitID string) string {
	t.Helper()
	n := f.nextSeq()

	var unit any
	if unitID != "" {
		unit = unitID
	}
	return f.insertReturningID(t, ctx,
		`INSERT INTO tenants (organization_id, unit_id, full_name, email) VALUES ($1, $2, $3, $4) RETURNING id`,
		orgID, unit, fmt.Sprintf("Tenant %d", n), fmt.Sprintf("tenant%d@example.com", n))
}

// LinkTenantUser marks userID as the resident account of the tenant
func (f *FixtureFactory) LinkTenantUser(t *testing.T, ctx context.Context, tenantID, userID string) {
	t.Helper()
	f.exec(t, ctx, `UPDATE tenants SET user_id = $2 WHERE id = $1`, tenantID, userID)
}

// Invoice inserts an invoice and returns its id
func (f *FixtureFactory) Invoice(t *testing.T, ctx context.Context, tenantID, amount string) string {
	t.Helper()
	return f.insertReturningID(t, ctx,
		`INSERT INTO invoices (tenant_id, description, amount, due_date) VALUES ($1, $2, $3, $4) RETURNING id`,
		tenantID, "Monthly rent", amount, time.Now().AddDate(0, 0, 14).Format("2006-01-02"))
}

// Payment inserts a payment against invoiceID and returns its id
func (f *FixtureFactory) Payment(t *testing.T, ctx context.Context, invoiceID, tenantID, amount string) string {
	t.Helper()
	return f.insertReturningID(t, ctx,
		`INSERT INTO payments (invoice_id, tenant_id, amount, method) VALUES ($1, $2, $3, $4) RETURNING id`,
		invoiceID, tenantID, amount, "bank_transfer")
}

func (f *FixtureFactory) insertReturningID(t *testing.T, ctx context.Context, query string, args ...any) string {
	t.Helper()
	var id string
	if err := f.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		t.Fatalf("fixture insert failed: %v", err)
	}
	return id
}

func (f *FixtureFactory) exec(t *testing.T, ctx context.Context, query string, args ...any) {
	t.Helper()
	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		t.Fatalf("fixture exec failed: %v", err)
	}
}

// TokenClaims describes a test bearer token
type TokenClaims struct {
	Subject string
	Email   string
	Role    string
	TTL     time.Duration
}

// SignToken returns an HS256 token signed with secret
func SignToken(t *testing.T, secret string, c TokenClaims) string {
	t.Helper()
	if c.TTL == 0 {
		c.TTL = time.Hour
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   c.Subject,
		"email": c.Email,
		"role":  c.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(c.TTL).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}
