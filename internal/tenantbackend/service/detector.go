package service

import (
	"context"
	"sync"
	"time"

	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/config"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/messaging"
)

const (
	defaultProbeTable   = "tenant_family_members"
	defaultProbeTimeout = 3 * time.Second
)

// ModeDetector resolves the schema mode once per process. The first caller
// runs the probe; concurrent callers wait for it and everyone after reads
// the cached answer.
type ModeDetector struct {
	prober    Prober
	table     string
	timeout   time.Duration
	publisher messaging.EventPublisher
	logger    *logger.Logger

	mu           sync.Mutex
	resolved     bool
	mode         domain.SchemaMode
	inconclusive bool
}

// NewModeDetector creates a detector probing cfg.ProbeTable
func NewModeDetector(prober Prober, cfg config.BackendConfig, publisher messaging.EventPublisher, log *logger.Logger) *ModeDetector {
	if cfg.ProbeTable == "" {
		cfg.ProbeTable = defaultProbeTable
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ModeDetector{
		prober:    prober,
		table:     cfg.ProbeTable,
		timeout:   cfg.ProbeTimeout,
		publisher: publisher,
		logger:    log.WithComponent("mode_detector"),
	}
}

// FixedMode returns a detector that never probes
func FixedMode(mode domain.SchemaMode) *ModeDetector {
	return &ModeDetector{
		publisher: messaging.NopPublisher{},
		logger:    logger.Nop(),
		resolved:  true,
		mode:      mode,
	}
}

// Mode returns the schema mode, probing on first use
func (d *ModeDetector) Mode(ctx context.Context) domain.SchemaMode {
	mode, _ := d.Status(ctx)
	return mode
}

// Status returns the schema mode and whether the probe failed for a reason
// other than the datastore answering
func (d *ModeDetector) Status(ctx context.Context) (domain.SchemaMode, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.resolved {
		d.probe(ctx)
	}
	return d.mode, d.inconclusive
}

func (d *ModeDetector) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	err := d.prober.Probe(probeCtx, d.table)

	event := messaging.TenantSchemaDetectedEvent{ProbeTable: d.table}
	switch {
	case err == nil:
		d.mode = domain.ModeEnhanced
		d.logger.Info().Str("table", d.table).Msg("enhanced tenant schema detected")
	case database.IsServerError(err):
		d.mode = domain.ModeLegacy
		event.Error = err.Error()
		d.logger.Info().Err(err).Str("table", d.table).Msg("legacy tenant schema detected")
	default:
		d.mode = domain.ModeLegacy
		d.inconclusive = true
		event.Error = err.Error()
		d.logger.Warn().Err(err).Str("table", d.table).
			Msg("schema probe did not reach the datastore, falling back to legacy mode until restart")
	}
	d.resolved = true

	event.Mode = string(d.mode)
	event.Inconclusive = d.inconclusive
	if pubErr := d.publisher.Publish(ctx, messaging.EventTenantSchemaDetected, event); pubErr != nil {
		d.logger.Warn().Err(pubErr).Msg("failed to publish schema detection")
	}
}
