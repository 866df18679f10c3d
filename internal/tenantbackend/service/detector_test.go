package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/service"
	"github.com/tenantdesk/tenantdesk-backend/pkg/messaging"
	"github.com/tenantdesk/tenantdesk-backend/pkg/testutil"
)

func TestModeDetector_ConcurrentCallersShareOneProbe(t *testing.T) {
	prober := &spyProber{}
	publisher := testutil.NewMockPublisher()
	detector := newDetector(prober, time.Second, publisher)

	var wg sync.WaitGroup
	modes := make([]domain.SchemaMode, 20)
	for i := range modes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			modes[i] = detector.Mode(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), prober.calls.Load())
	for _, m := range modes {
		assert.Equal(t, domain.ModeEnhanced, m)
	}

	detector.Mode(context.Background())
	assert.Equal(t, int32(1), prober.calls.Load())

	events := publisher.EventsOfType(messaging.EventTenantSchemaDetected)
	require.Len(t, events, 1)
	detected := events[0].(messaging.TenantSchemaDetectedEvent)
	assert.Equal(t, "enhanced", detected.Mode)
	assert.False(t, detected.Inconclusive)
}

func TestModeDetector_MissingTableIsLegacy(t *testing.T) {
	prober := &spyProber{err: &pq.Error{Code: "42P01", Message: `relation "tenant_family_members" does not exist`}}
	detector := newDetector(prober, time.Second, testutil.NewMockPublisher())

	mode, inconclusive := detector.Status(context.Background())

	assert.Equal(t, domain.ModeLegacy, mode)
	assert.False(t, inconclusive)
}

func TestModeDetector_TimeoutIsInconclusiveLegacy(t *testing.T) {
	prober := &spyProber{block: true}
	publisher := testutil.NewMockPublisher()
	detector := newDetector(prober, 20*time.Millisecond, publisher)

	mode, inconclusive := detector.Status(context.Background())

	assert.Equal(t, domain.ModeLegacy, mode)
	assert.True(t, inconclusive)

	events := publisher.EventsOfType(messaging.EventTenantSchemaDetected)
	require.Len(t, events, 1)
	assert.True(t, events[0].(messaging.TenantSchemaDetectedEvent).Inconclusive)
}

func TestModeDetector_CallerCancellationDoesNotPoisonTheCache(t *testing.T) {
	prober := &spyProber{}
	detector := newDetector(prober, time.Second, testutil.NewMockPublisher())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, domain.ModeEnhanced, detector.Mode(ctx))
}

func TestFixedMode_NeverProbes(t *testing.T) {
	detector := service.FixedMode(domain.ModeLegacy)

	mode, inconclusive := detector.Status(context.Background())

	assert.Equal(t, domain.ModeLegacy, mode)
	assert.False(t, inconclusive)
}
