package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/tenantdesk/tenantdesk-backend/internal/admin/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/guard"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/service"
	"github.com/tenantdesk/tenantdesk-backend/pkg/config"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/testutil"
)

// spyStore records every call that would reach the datastore
type spyStore struct {
	mu    sync.Mutex
	calls []string
	ddl   []string

	counts    map[string]int64
	countErr  error
	columns   []domain.ColumnInfo
	colErr    error
	sample    domain.Row
	selects   []domain.SelectQuery
	selectFn  func(q domain.SelectQuery) (*domain.RowSet, error)
	enums     []domain.EnumInfo
	enumErr   error
	inserted  domain.Row
	updateErr error
	deleted   int64
	ddlErr    error
}

func newSpyStore() *spyStore {
	return &spyStore{counts: map[string]int64{}}
}

func (s *spyStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *spyStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *spyStore) CountRows(_ context.Context, table string) (int64, error) {
	s.record("CountRows")
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.counts[table], nil
}

func (s *spyStore) Columns(context.Context, string) ([]domain.ColumnInfo, error) {
	s.record("Columns")
	return s.columns, s.colErr
}

func (s *spyStore) SampleRow(context.Context, string) (domain.Row, error) {
	s.record("SampleRow")
	return s.sample, nil
}

func (s *spyStore) Select(_ context.Context, q domain.SelectQuery) (*domain.RowSet, error) {
	s.record("Select")
	s.selects = append(s.selects, q)
	if s.selectFn != nil {
		return s.selectFn(q)
	}
	return &domain.RowSet{Rows: []domain.Row{}}, nil
}

func (s *spyStore) Count(context.Context, domain.SelectQuery) (int64, error) {
	s.record("Count")
	return 0, nil
}

func (s *spyStore) Enums(context.Context) ([]domain.EnumInfo, error) {
	s.record("Enums")
	return s.enums, s.enumErr
}

func (s *spyStore) Insert(_ context.Context, _ string, row domain.Row) (domain.Row, error) {
	s.record("Insert")
	if s.inserted != nil {
		return s.inserted, nil
	}
	return row, nil
}

func (s *spyStore) Update(_ context.Context, _, _ string, patch domain.Row) (domain.Row, error) {
	s.record("Update")
	return patch, s.updateErr
}

func (s *spyStore) Delete(context.Context, string, string) (int64, error) {
	s.record("Delete")
	return s.deleted, nil
}

func (s *spyStore) ExecDDL(_ context.Context, stmt string) error {
	s.record("ExecDDL")
	s.mu.Lock()
	s.ddl = append(s.ddl, stmt)
	s.mu.Unlock()
	return s.ddlErr
}

// fakeAudit keeps entries in memory
type fakeAudit struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry
	insertErr error
	org       string
	orgErr    error
	calls     int
}

func (f *fakeAudit) Insert(_ context.Context, entry *domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.insertErr != nil {
		return f.insertErr
	}
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) OrganizationOf(context.Context, string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.org, f.org != "", f.orgErr
}

func (f *fakeAudit) List(_ context.Context, q domain.AuditQuery) ([]domain.AuditEntry, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.AuditEntry{}
	for i := len(f.entries) - 1; i >= 0; i-- {
		if q.EntityType == nil || f.entries[i].EntityType == *q.EntityType {
			out = append(out, f.entries[i])
		}
	}
	return out, int64(len(out)), nil
}

// fakeTx calls fn directly and remembers whether it committed
type fakeTx struct {
	began      int
	rolledBack int
}

func (t *fakeTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	t.began++
	if err := fn(ctx); err != nil {
		t.rolledBack++
		return err
	}
	return nil
}

type engineFixture struct {
	engine    *service.Engine
	store     *spyStore
	audit     *fakeAudit
	tx        *fakeTx
	publisher *testutil.MockPublisher
}

func newEngine(t *testing.T, mode string) *engineFixture {
	t.Helper()
	catalog, err := guard.NewCatalog(config.DefaultAllowedTables, "activity_log")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	store := newSpyStore()
	audit := &fakeAudit{}
	tx := &fakeTx{}
	pub := testutil.NewMockPublisher()
	log := logger.Nop()

	recorder := service.NewRecorder(audit, pub, "", log)
	engine := service.NewEngine(catalog, store, tx, recorder, pub, service.EngineConfig{
		DefaultPageSize: 50,
		MaxPageSize:     200,
		ExportRowLimit:  10000,
		AuditMode:       mode,
	}, log)

	return &engineFixture{engine: engine, store: store, audit: audit, tx: tx, publisher: pub}
}
