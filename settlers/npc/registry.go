package npc

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

//go:embed personas.json
var defaultPersonas []byte

// Persona tiers, strongest first.
const (
	TierExpert  = 1
	TierRegular = 2
	TierCasual  = 3
)

// PersonaRegistry is the set of personas a table can seat, keyed by lowercase ID.
type PersonaRegistry struct {
	mu       sync.RWMutex
	personas map[string]*NPCPersona
}

func NewRegistry() *PersonaRegistry {
	return &PersonaRegistry{personas: make(map[string]*NPCPersona)}
}

// DefaultRegistry returns a registry preloaded with the built-in personas.
func DefaultRegistry() *PersonaRegistry {
	r := NewRegistry()
	if err := r.LoadFromJSON(defaultPersonas); err != nil {
		panic(fmt.Sprintf("npc: embedded personas: %v", err))
	}
	return r
}

// LoadFromFile merges the personas in a JSON file into the registry.
func (r *PersonaRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read personas file: %w", err)
	}
	return r.LoadFromJSON(data)
}

// LoadFromJSON merges a JSON array of personas into the registry. Entries
// without an ID are skipped. A persona that fails validation rejects the
// whole batch and leaves the registry unchanged; later entries replace
// earlier ones with the same ID.
func (r *PersonaRegistry) LoadFromJSON(data []byte) error {
	var list []*NPCPersona
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse personas JSON: %w", err)
	}

	batch := make(map[string]*NPCPersona, len(list))
	for _, p := range list {
		if p == nil || strings.TrimSpace(p.ID) == "" {
			continue
		}
		p.ID = personaKey(p.ID)
		p.Color = strings.ToLower(strings.TrimSpace(p.Color))
		if p.Name == "" {
			p.Name = p.ID
		}
		if err := validatePersona(p); err != nil {
			return fmt.Errorf("persona %q: %w", p.ID, err)
		}
		batch[p.ID] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range batch {
		r.personas[id] = p
	}
	return nil
}

func validatePersona(p *NPCPersona) error {
	if p.Tier < TierExpert || p.Tier > TierCasual {
		return fmt.Errorf("tier %d outside %d..%d", p.Tier, TierExpert, TierCasual)
	}
	knobs := []struct {
		name string
		v    float64
	}{
		{"aggression", p.Brain.Aggression},
		{"tightness", p.Brain.Tightness},
		{"trading", p.Brain.Trading},
		{"expansion", p.Brain.Expansion},
		{"randomness", p.Brain.Randomness},
	}
	for _, k := range knobs {
		if k.v < 0 || k.v > 1 {
			return fmt.Errorf("%s %.2f outside 0..1", k.name, k.v)
		}
	}
	return nil
}

func personaKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Get returns the persona with the given ID, ignoring case, or nil.
func (r *PersonaRegistry) Get(id string) *NPCPersona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.personas[personaKey(id)]
}

// All returns every persona ordered by ID.
func (r *PersonaRegistry) All() []*NPCPersona {
	return r.filter(func(*NPCPersona) bool { return true })
}

// ByTier returns the personas of one tier ordered by ID.
func (r *PersonaRegistry) ByTier(tier int) []*NPCPersona {
	return r.filter(func(p *NPCPersona) bool { return p.Tier == tier })
}

// WithoutColors returns the personas whose preferred seat color is not
// taken. Personas without a color always qualify.
func (r *PersonaRegistry) WithoutColors(taken ...string) []*NPCPersona {
	used := make(map[string]bool, len(taken))
	for _, c := range taken {
		used[strings.ToLower(c)] = true
	}
	return r.filter(func(p *NPCPersona) bool { return p.Color == "" || !used[p.Color] })
}

func (r *PersonaRegistry) filter(keep func(*NPCPersona) bool) []*NPCPersona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*NPCPersona
	for _, p := range r.personas {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *PersonaRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.personas)
}
