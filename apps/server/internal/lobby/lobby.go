package lobby

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"settlers-lite/apps/server/internal/codec"
	"settlers-lite/apps/server/internal/ledger"
	"settlers-lite/apps/server/internal/table"
	"settlers-lite/settlers/npc"
)

// Options configures every table the lobby creates.
type Options struct {
	Table     table.TableConfig
	Broadcast table.BroadcastFunc
	Ledger    ledger.Service
	NPC       *npc.Manager
	// OnMatchEnd is attached to each new table.
	OnMatchEnd table.MatchEndHook
}

// Lobby manages all tables and player assignments
type Lobby struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
	nextID uint64

	opts Options
}

func New(opts Options) *Lobby {
	return &Lobby{
		tables: make(map[string]*table.Table),
		opts:   opts,
	}
}

// QuickStart finds a table that is still seating players, or creates one.
func (l *Lobby) QuickStart(userID uint64) (*table.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range l.sortedIDsLocked() {
		t := l.tables[id]
		if t.HasOpenSeat() {
			log.Printf("[Lobby] QuickStart: user %d joining existing table %s", userID, t.ID)
			return t, nil
		}
	}

	t, err := l.createLocked()
	if err != nil {
		return nil, err
	}
	log.Printf("[Lobby] QuickStart: user %d created new table %s", userID, t.ID)
	return t, nil
}

// CreateTable always opens a new table.
func (l *Lobby) CreateTable() (*table.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.createLocked()
}

func (l *Lobby) createLocked() (*table.Table, error) {
	l.nextID++
	tableID := fmt.Sprintf("table_%d", l.nextID)
	var opts []table.Option
	if l.opts.Ledger != nil {
		opts = append(opts, table.WithLedger(l.opts.Ledger))
	}
	if l.opts.NPC != nil {
		opts = append(opts, table.WithNPCManager(l.opts.NPC))
	}
	t, err := table.New(tableID, l.opts.Table, l.opts.Broadcast, opts...)
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	t.AddMatchEndHook(l.opts.OnMatchEnd)
	l.tables[tableID] = t
	return t, nil
}

// GetTable returns a table by ID
func (l *Lobby) GetTable(tableID string) *table.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tables[tableID]
}

// ListTables summarizes every table, ordered by ID.
func (l *Lobby) ListTables() []codec.TableInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]codec.TableInfo, 0, len(l.tables))
	for _, id := range l.sortedIDsLocked() {
		out = append(out, l.tables[id].Info())
	}
	return out
}

// Sweep stops and forgets tables nobody has joined for ttl. It returns how many were removed.
func (l *Lobby) Sweep(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, t := range l.tables {
		if t.IsClosed() || (!t.Info().Started && t.IsIdleFor(ttl)) {
			t.Stop()
			delete(l.tables, id)
			removed++
			log.Printf("[Lobby] removed idle table %s", id)
		}
	}
	return removed
}

// Close stops every table.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.tables {
		t.Stop()
		delete(l.tables, id)
	}
}

func (l *Lobby) sortedIDsLocked() []string {
	ids := make([]string, 0, len(l.tables))
	for id := range l.tables {
		ids = append(ids, id)
	}
	// table_10 sorts after table_9
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}
