package knowledge

// #region imports
import (
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
)

// #endregion imports

// maxRendered caps how many summaries of one series are shown to the oracle.
const maxRendered = 5

// #region registry

// Registry is the process-wide, advisory memory about our team: standing notes
// plus battle summaries grouped by series (e.g. one opponent in a best-of-three).
// Safe for concurrent use by independent battle sessions.
type Registry struct {
	mu     sync.RWMutex
	team   string
	notes  string
	series map[string][]string
	store  *Store
}

// NewRegistry creates a registry for team. store may be nil for an in-memory registry.
func NewRegistry(team, notes string, store *Store) *Registry {
	return &Registry{
		team:   team,
		notes:  strings.TrimSpace(notes),
		series: make(map[string][]string),
		store:  store,
	}
}

// Load fills the registry from its store.
func (r *Registry) Load() error {
	if r.store == nil {
		return nil
	}
	entries, err := r.store.List(r.team)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.series[e.SeriesKey] = append(r.series[e.SeriesKey], e.Summary)
	}
	log.Printf("[KNOW] loaded %d summaries for team %q", len(entries), r.team)
	return nil
}

// Team returns the team name the registry belongs to.
func (r *Registry) Team() string {
	return r.team
}

// Notes returns the standing team notes.
func (r *Registry) Notes() string {
	return r.notes
}

// Series returns a copy of the summaries recorded under key, oldest first.
func (r *Registry) Series(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.series[key])
}

// Add records a battle summary under key and persists it when a store is attached.
func (r *Registry) Add(key, summary string) error {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil
	}
	if r.store != nil {
		if err := r.store.Save(r.team, key, summary); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.series[key] = append(r.series[key], summary)
	n := len(r.series[key])
	r.mu.Unlock()
	log.Printf("[KNOW] %s/%s: summary %d recorded", r.team, key, n)
	return nil
}

// Render formats the notes and the latest summaries of key for a prompt.
// Returns "" when there is nothing to say.
func (r *Registry) Render(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	if r.notes != "" {
		b.WriteString(r.notes)
		b.WriteString("\n")
	}
	entries := r.series[key]
	start := max(len(entries)-maxRendered, 0)
	for i, e := range entries[start:] {
		fmt.Fprintf(&b, "- Game %d: %s\n", start+i+1, e)
	}
	return strings.TrimSpace(b.String())
}

// #endregion registry
