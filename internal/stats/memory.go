package stats

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps stats and logs in process memory. Used for dry runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[time.Time]*Record
	logs    []WeatherLog
	nextID  int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[time.Time]*Record)}
}

// Factory returns a RepositoryFactory whose handles share this store.
func (m *MemoryStore) Factory() RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return memoryHandle{m}, nil
	}
}

type memoryHandle struct {
	m *MemoryStore
}

func (h memoryHandle) Close() error { return nil }

func (h memoryHandle) InsertWeatherLog(ctx context.Context, entry WeatherLog) (WeatherLog, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()

	h.m.nextID++
	entry.ID = h.m.nextID
	h.m.logs = append(h.m.logs, entry)
	return entry, nil
}

func (h memoryHandle) RecentWeatherLogs(ctx context.Context, since time.Time, limit int) ([]WeatherLog, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()

	var out []WeatherLog
	for i := len(h.m.logs) - 1; i >= 0; i-- {
		if h.m.logs[i].Timestamp.Before(since) {
			continue
		}
		out = append(out, h.m.logs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (h memoryHandle) UpsertStats(ctx context.Context, period time.Time, d Delta, now time.Time) (Record, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()

	rec, ok := h.m.records[period]
	if !ok {
		h.m.nextID++
		rec = &Record{ID: h.m.nextID, Period: period}
		h.m.records[period] = rec
	}
	Apply(rec, d)
	rec.UpdatedAt = now
	return *rec, nil
}

func (h memoryHandle) LatestStats(ctx context.Context) (Record, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()

	var latest *Record
	for _, r := range h.m.records {
		if latest == nil || r.Period.After(latest.Period) {
			latest = r
		}
	}
	if latest == nil {
		return Record{}, ErrNotFound
	}
	return *latest, nil
}

func (h memoryHandle) StatsSince(ctx context.Context, since time.Time) ([]Record, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()

	var out []Record
	for _, r := range h.m.records {
		if !r.Period.Before(since) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.After(out[j].Period) })
	return out, nil
}

// Seed stores a record directly, replacing any record for the same period.
func (m *MemoryStore) Seed(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Period = PeriodFor(r.Period)
	m.records[r.Period] = &r
}

// Logs returns a copy of all stored weather logs in insertion order.
func (m *MemoryStore) Logs() []WeatherLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WeatherLog(nil), m.logs...)
}
