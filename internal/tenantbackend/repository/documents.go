package repository

import (
	"context"

	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
)

const documentColumns = `id, tenant_id, document_type, file_name, file_url, is_verified, uploaded_at`

// DocumentRepository handles tenant_documents
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// ListByTenant lists a tenant's documents, newest upload first
func (r *DocumentRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.TenantDocument, error) {
	var rows []documentRow
	query := `SELECT ` + documentColumns + ` FROM tenant_documents WHERE tenant_id = $1 ORDER BY uploaded_at DESC NULLS LAST`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, err
	}

	docs := make([]domain.TenantDocument, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDomain())
	}
	return docs, nil
}

// Create registers an unverified document
func (r *DocumentRepository) Create(ctx context.Context, tenantID string, in domain.DocumentInput) (*domain.TenantDocument, error) {
	var row documentRow
	query := `
		INSERT INTO tenant_documents (tenant_id, document_type, file_name, file_url, is_verified)
		VALUES ($1, $2, NULLIF($3, ''), $4, FALSE)
		RETURNING ` + documentColumns
	if err := r.db.GetContext(ctx, &row, query, tenantID, in.DocumentType, in.DocumentName, in.DocumentURL); err != nil {
		return nil, err
	}
	d := row.toDomain()
	return &d, nil
}
