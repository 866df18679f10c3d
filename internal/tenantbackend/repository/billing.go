package repository

import (
	"context"

	"github.com/lib/pq"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

const invoiceColumns = `id, tenant_id, description, amount, due_date, status, created_at`

// BillingRepository reads invoices and payments
type BillingRepository struct {
	db *database.DB
}

// NewBillingRepository creates a new billing repository
func NewBillingRepository(db *database.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// InvoicesByTenant lists a tenant's invoices, newest first
func (r *BillingRepository) InvoicesByTenant(ctx context.Context, tenantID string) ([]Invoice, error) {
	var rows []invoiceRow
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, err
	}

	invoices := make([]Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, row.toInvoice())
	}
	return invoices, nil
}

// PaymentsForInvoices lists payments made against any of invoiceIDs
func (r *BillingRepository) PaymentsForInvoices(ctx context.Context, invoiceIDs []string) ([]domain.Payment, error) {
	if len(invoiceIDs) == 0 {
		return []domain.Payment{}, nil
	}

	var rows []paymentRow
	query := `
		SELECT id, invoice_id, amount, payment_date, method, reference
		FROM payments
		WHERE invoice_id = ANY($1::uuid[])
		ORDER BY payment_date, created_at
	`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(invoiceIDs)); err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toDomain())
	}
	return payments, nil
}

// CreateInvoice adds a pending invoice in the tenant's organization
func (r *BillingRepository) CreateInvoice(ctx context.Context, tenantID string, in domain.BillInput) (*Invoice, error) {
	var row invoiceRow
	query := `
		INSERT INTO invoices (organization_id, tenant_id, description, amount, due_date, status)
		SELECT t.organization_id, t.id, NULLIF($2::text, ''), $3::numeric, $4::date, 'pending'
		FROM tenants t
		WHERE t.id = $1
		RETURNING ` + invoiceColumns
	if err := r.db.GetContext(ctx, &row, query, tenantID, in.Description, in.Amount, in.DueDate); err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("tenant")
		}
		return nil, err
	}
	inv := row.toInvoice()
	return &inv, nil
}
