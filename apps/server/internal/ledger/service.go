package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

const defaultRecentLimit = 200

var ErrNotFound = errors.New("not found")

// Outcome says how a match finished.
type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeAborted Outcome = "aborted"
)

type PlayerResult struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Robot bool   `json:"robot"`
	Score int    `json:"score"`
}

// MatchRecord summarizes one finished match. Players are in turn order.
type MatchRecord struct {
	ID        string         `json:"id"`
	TableID   string         `json:"table_id"`
	Seed      int64          `json:"seed"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Outcome   Outcome        `json:"outcome"`
	Rounds    int            `json:"rounds"`
	Steps     int            `json:"steps"`
	Winner    uint64         `json:"winner,omitempty"`
	Winners   []uint64       `json:"winners,omitempty"`
	Players   []PlayerResult `json:"players"`
	// Journal is the path of the match journal, empty when journaling is off.
	Journal string `json:"journal,omitempty"`
}

// Service stores match history.
type Service interface {
	RecordMatch(ctx context.Context, rec MatchRecord) error
	ListRecent(ctx context.Context, limit int) ([]MatchRecord, error)
	ListForPlayer(ctx context.Context, playerID uint64, limit int) ([]MatchRecord, error)
	GetMatch(ctx context.Context, id string) (MatchRecord, error)
	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

// MemoryService keeps the newest records in process memory.
type MemoryService struct {
	mu          sync.RWMutex
	records     []MatchRecord
	recentLimit int
}

func NewMemoryService(recentLimit int) *MemoryService {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	return &MemoryService{recentLimit: recentLimit}
}

func (m *MemoryService) Close() error { return nil }

func (m *MemoryService) RecordMatch(_ context.Context, rec MatchRecord) error {
	if rec.ID == "" {
		return errors.New("match id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.ID == rec.ID {
			m.records[i] = rec
			return nil
		}
	}
	m.records = append(m.records, rec)
	sort.SliceStable(m.records, func(i, j int) bool { return m.records[i].EndedAt.After(m.records[j].EndedAt) })
	if len(m.records) > m.recentLimit {
		m.records = m.records[:m.recentLimit]
	}
	return nil
}

func (m *MemoryService) ListRecent(_ context.Context, limit int) ([]MatchRecord, error) {
	return m.filter(clampLimit(limit), func(MatchRecord) bool { return true }), nil
}

func (m *MemoryService) ListForPlayer(_ context.Context, playerID uint64, limit int) ([]MatchRecord, error) {
	return m.filter(clampLimit(limit), func(r MatchRecord) bool {
		for _, p := range r.Players {
			if p.ID == playerID {
				return true
			}
		}
		return false
	}), nil
}

func (m *MemoryService) GetMatch(_ context.Context, id string) (MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return MatchRecord{}, ErrNotFound
}

func (m *MemoryService) filter(limit int, keep func(MatchRecord) bool) []MatchRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MatchRecord, 0, limit)
	for _, r := range m.records {
		if len(out) == limit {
			break
		}
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
