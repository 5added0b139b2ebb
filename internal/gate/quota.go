package gate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	merrors "github.com/midos-mcp/midos-mcp/internal/errors"
)

// usageFlushInterval debounces disk writes: the in-memory ledger is
// authoritative between flushes, and only the last writer before a flush
// wins.
const usageFlushInterval = 30 * time.Second

// QuotaLedger tracks per-identifier monthly query counts in memory,
// flushing to disk no more than once per usageFlushInterval.
type QuotaLedger struct {
	path string

	mu         sync.Mutex
	counts     map[string]int
	month      string
	lastFlush  time.Time
}

// NewQuotaLedger opens the usage ledger backed by path.
func NewQuotaLedger(path string) *QuotaLedger {
	return &QuotaLedger{
		path:  path,
		month: currentMonth(),
	}
}

func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

func (l *QuotaLedger) load() (map[string]UsageEntry, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return map[string]UsageEntry{}, nil
	}
	if err != nil {
		return nil, merrors.IOError("failed to read usage ledger", err)
	}
	if len(data) == 0 {
		return map[string]UsageEntry{}, nil
	}
	var entries map[string]UsageEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, merrors.New(merrors.ErrCodeConfigInvalid, "usage ledger file is corrupt", err)
	}
	return entries, nil
}

func (l *QuotaLedger) diskCount(identifier string) int {
	entries, err := l.load()
	if err != nil {
		return 0
	}
	entry, ok := entries[identifier]
	if !ok || entry.Month != currentMonth() {
		return 0
	}
	return entry.Count
}

// flushLocked writes the full in-memory ledger to disk. Caller must hold mu.
func (l *QuotaLedger) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return merrors.IOError("failed to create usage ledger directory", err)
	}

	entries := make(map[string]UsageEntry, len(l.counts))
	for id, count := range l.counts {
		entries[id] = UsageEntry{Month: l.month, Count: count}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return merrors.InternalError("failed to marshal usage ledger", err)
	}

	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return merrors.IOError("failed to write usage ledger", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return merrors.IOError("failed to replace usage ledger", err)
	}

	l.lastFlush = time.Now()
	return nil
}

// Flush forces an immediate write of the in-memory ledger to disk,
// bypassing the debounce interval. Intended for graceful shutdown.
func (l *QuotaLedger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		return nil
	}
	return l.flushLocked()
}

// CheckAndIncrement checks identifier's usage against tier's monthly limit
// and, if under limit, increments the in-memory counter. A month rollover
// clears the in-memory map first. A disk flush happens at most once every
// usageFlushInterval.
func (l *QuotaLedger) CheckAndIncrement(identifier string, tier Tier) (allowed bool, count int, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit = LimitFor(tier)
	month := currentMonth()

	if month != l.month || l.counts == nil {
		l.counts = make(map[string]int)
		l.month = month
	}

	current, ok := l.counts[identifier]
	if !ok {
		current = l.diskCount(identifier)
	}

	if current >= limit {
		return false, current, limit
	}

	l.counts[identifier] = current + 1

	if time.Since(l.lastFlush) > usageFlushInterval {
		_ = l.flushLocked()
	}

	return true, current + 1, limit
}

// Stats returns every identifier's usage for the current month, for the
// `keys usage` CLI subcommand.
func (l *QuotaLedger) Stats() ([]UsageStat, error) {
	entries, err := l.load()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	for id, count := range l.counts {
		entries[id] = UsageEntry{Month: l.month, Count: count}
	}
	l.mu.Unlock()

	month := currentMonth()
	var out []UsageStat
	for id, entry := range entries {
		if entry.Month != month {
			continue
		}
		out = append(out, UsageStat{Identifier: maskKey(id), Month: entry.Month, Count: entry.Count})
	}
	return out, nil
}

// UsageStat is one identifier's masked monthly usage, for reporting.
type UsageStat struct {
	Identifier string `json:"identifier"`
	Month      string `json:"month"`
	Count      int    `json:"count"`
}
