package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/repository"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	apperrors "github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
)

// SchemaAdapter serves tenant details from one schema version
type SchemaAdapter interface {
	Mode() domain.SchemaMode

	GetFamilyMembers(ctx context.Context, tenantID string) domain.Result[[]domain.FamilyMember]
	AddFamilyMember(ctx context.Context, tenantID string, in domain.FamilyMemberInput) domain.Result[domain.FamilyMember]
	UpdateFamilyMember(ctx context.Context, id string, in domain.FamilyMemberInput) domain.Result[domain.FamilyMember]
	DeleteFamilyMember(ctx context.Context, id string) domain.Result[domain.Deleted]

	GetDocuments(ctx context.Context, tenantID string) domain.Result[[]domain.TenantDocument]
	AddDocument(ctx context.Context, tenantID string, in domain.DocumentInput) domain.Result[domain.TenantDocument]

	GetBills(ctx context.Context, tenantID string) domain.Result[[]domain.Bill]
	AddBill(ctx context.Context, tenantID string, in domain.BillInput) domain.Result[domain.Bill]

	GetMeterReadings(ctx context.Context, tenantID string) domain.Result[[]domain.MeterReading]
	AddMeterReading(ctx context.Context, tenantID string, in domain.MeterReadingInput) domain.Result[domain.MeterReading]

	GetRoomInfo(ctx context.Context, tenantID string) domain.Result[domain.RoomInfo]
	UpdateRoomInfo(ctx context.Context, tenantID string, in domain.RoomInput) domain.Result[domain.RoomInfo]
}

// billing is shared by both adapters: invoices and payments exist in every
// schema version
type billing struct {
	store  BillingStore
	logger *logger.Logger
}

func (b billing) GetBills(ctx context.Context, tenantID string) domain.Result[[]domain.Bill] {
	invoices, err := b.store.InvoicesByTenant(ctx, tenantID)
	if err != nil {
		return failure[[]domain.Bill](b.logger, "get_bills", err)
	}

	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	payments, err := b.store.PaymentsForInvoices(ctx, ids)
	if err != nil {
		return failure[[]domain.Bill](b.logger, "get_bills", err)
	}

	return domain.OK(assembleBills(invoices, payments))
}

func (b billing) AddBill(ctx context.Context, tenantID string, in domain.BillInput) domain.Result[domain.Bill] {
	inv, err := b.store.CreateInvoice(ctx, tenantID, in)
	if err != nil {
		return failure[domain.Bill](b.logger, "add_bill", err)
	}
	bills := assembleBills([]repository.Invoice{*inv}, nil)
	return domain.OK(bills[0])
}

// assembleBills attaches payments to their invoices. The remaining balance
// is not clamped, so an overpaid bill reports a negative balance.
func assembleBills(invoices []repository.Invoice, payments []domain.Payment) []domain.Bill {
	byInvoice := make(map[string][]domain.Payment, len(invoices))
	for _, p := range payments {
		byInvoice[p.InvoiceID] = append(byInvoice[p.InvoiceID], p)
	}

	bills := make([]domain.Bill, 0, len(invoices))
	for _, inv := range invoices {
		paid := decimal.Zero
		own := byInvoice[inv.ID]
		if own == nil {
			own = []domain.Payment{}
		}
		for _, p := range own {
			paid = paid.Add(p.Amount)
		}
		bills = append(bills, domain.Bill{
			ID:               inv.ID,
			TenantID:         inv.TenantID,
			Description:      inv.Description,
			Amount:           inv.Amount,
			DueDate:          inv.DueDate,
			Status:           inv.Status,
			TotalPaid:        paid,
			RemainingBalance: inv.Amount.Sub(paid),
			Payments:         own,
			CreatedAt:        inv.CreatedAt,
		})
	}
	return bills
}

// failure turns a store error into a failed result. Caller-facing AppErrors
// pass through; server errors get a fixed message; anything else is an
// internal error. Only the log line carries driver detail.
func failure[T any](log *logger.Logger, op string, err error) domain.Result[T] {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return domain.Fail[T](appErr)
	}

	log.Error().Err(err).Str("operation", op).Msg("tenant backend operation failed")
	if database.IsServerError(err) {
		return domain.Fail[T](database.MapPQError(err))
	}
	return domain.Fail[T](err)
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
