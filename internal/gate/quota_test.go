package gate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuotaLedger(t *testing.T) *QuotaLedger {
	t.Helper()
	return NewQuotaLedger(filepath.Join(t.TempDir(), "usage.json"))
}

func TestQuotaLedger_FirstCallAllowedAndIncrements(t *testing.T) {
	l := newTestQuotaLedger(t)
	allowed, count, limit := l.CheckAndIncrement("id-a", TierFree)
	assert.True(t, allowed)
	assert.Equal(t, 1, count)
	assert.Equal(t, 100, limit)
}

func TestQuotaLedger_DeniesAtLimit(t *testing.T) {
	l := newTestQuotaLedger(t)
	for i := 0; i < 100; i++ {
		allowed, _, _ := l.CheckAndIncrement("id-b", TierFree)
		require.True(t, allowed)
	}
	allowed, count, limit := l.CheckAndIncrement("id-b", TierFree)
	assert.False(t, allowed)
	assert.Equal(t, 100, count)
	assert.Equal(t, 100, limit)
}

func TestQuotaLedger_SeparateIdentifiersDoNotShareCounts(t *testing.T) {
	l := newTestQuotaLedger(t)
	l.CheckAndIncrement("id-c", TierFree)
	_, count, _ := l.CheckAndIncrement("id-d", TierFree)
	assert.Equal(t, 1, count)
}

func TestQuotaLedger_UnknownTierFallsBackToFreeLimit(t *testing.T) {
	l := newTestQuotaLedger(t)
	_, _, limit := l.CheckAndIncrement("id-e", Tier("bogus"))
	assert.Equal(t, 100, limit)
}

func TestQuotaLedger_FlushPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usage.json")

	l1 := NewQuotaLedger(path)
	l1.CheckAndIncrement("id-f", TierPro)
	l1.CheckAndIncrement("id-f", TierPro)
	require.NoError(t, l1.Flush())

	l2 := NewQuotaLedger(path)
	_, count, _ := l2.CheckAndIncrement("id-f", TierPro)
	assert.Equal(t, 3, count, "should resume from the flushed count of 2")
}

func TestQuotaLedger_StatsReflectsInMemoryAndDisk(t *testing.T) {
	l := newTestQuotaLedger(t)
	l.CheckAndIncrement("id-g", TierDev)
	l.CheckAndIncrement("id-g", TierDev)

	stats, err := l.Stats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Count)
}
