// Package patient manages patient records and their generated chart
// documentation.
//
// Records are stored msgpack-encoded under "pat:{user}:{id}". The AI summary
// and its parsed chart sections are written together in one update, so a
// reader never sees a summary whose chart view lags behind it.
package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ScrewVolt/halov2/pkg/chart"
	"github.com/ScrewVolt/halov2/pkg/kv"
	"github.com/ScrewVolt/halov2/pkg/scribe"
)

// Sentinel errors.
var (
	// ErrEmptyName rejects blank or whitespace-only patient names.
	ErrEmptyName = errors.New("patient: name must not be empty")

	// ErrGenerationInFlight is returned when a summary generation is
	// requested for a patient that already has one running. The second
	// request is rejected, not queued.
	ErrGenerationInFlight = errors.New("patient: summary generation already in progress")
)

// Record is one patient's stored state.
type Record struct {
	ID        string            `msgpack:"id" json:"id"`
	Name      string            `msgpack:"name" json:"name"`
	Summary   string            `msgpack:"summary,omitempty" json:"summary,omitempty"`
	Chart     map[string]string `msgpack:"chart,omitempty" json:"chart,omitempty"`
	CreatedAt time.Time         `msgpack:"created_at" json:"created_at"`
	UpdatedAt time.Time         `msgpack:"updated_at" json:"updated_at"`
}

// Registry stores one user's patient records.
type Registry struct {
	store kv.Store
	user  string
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a Registry scoped to one user.
func NewRegistry(store kv.Store, user string, opts ...Option) *Registry {
	r := &Registry{store: store, user: user, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) key(id string) kv.Key {
	return kv.Key{"pat", r.user, id}
}

// Create adds a new record with a fresh ID. The name is trimmed; a blank
// name returns ErrEmptyName.
func (r *Registry) Create(ctx context.Context, name string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrEmptyName
	}
	now := r.now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.put(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get returns one record. Unknown IDs return kv.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (Record, error) {
	raw, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("patient: decode record %s: %w", id, err)
	}
	return rec, nil
}

// List returns all records for the registry's user, oldest first.
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	var recs []Record
	for item, err := range r.store.List(ctx, kv.Key{"pat", r.user}) {
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := msgpack.Unmarshal(item.Value, &rec); err != nil {
			return nil, fmt.Errorf("patient: decode record %s: %w", item.Key, err)
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

// Rename updates a record's display name.
func (r *Registry) Rename(ctx context.Context, id, name string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrEmptyName
	}
	rec, err := r.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	rec.Name = name
	rec.UpdatedAt = r.now().UTC()
	if err := r.put(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes a record. Deleting an unknown ID is a no-op.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.key(id))
}

// SetSummary stores a new AI summary together with the chart sections parsed
// from it. The previous chart is replaced wholesale.
func (r *Registry) SetSummary(ctx context.Context, id, summary string) (Record, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	rec.Summary = summary
	rec.Chart = chart.Parse(summary).Sections
	rec.UpdatedAt = r.now().UTC()
	if err := r.put(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Registry) put(ctx context.Context, rec Record) error {
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("patient: encode record %s: %w", rec.ID, err)
	}
	return r.store.Set(ctx, r.key(rec.ID), raw)
}

// Generator runs summary generation with a per-patient in-flight guard.
type Generator struct {
	reg        *Registry
	summarizer scribe.Summarizer

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewGenerator wires a summarizer to a registry.
func NewGenerator(reg *Registry, summarizer scribe.Summarizer) *Generator {
	return &Generator{
		reg:        reg,
		summarizer: summarizer,
		inflight:   make(map[string]struct{}),
	}
}

// Generate summarizes the transcript and persists the result on the record.
// At most one generation runs per patient; a concurrent request returns
// ErrGenerationInFlight. On summarizer failure the stored record is left
// untouched.
func (g *Generator) Generate(ctx context.Context, id, transcript string) (Record, error) {
	g.mu.Lock()
	if _, busy := g.inflight[id]; busy {
		g.mu.Unlock()
		return Record{}, ErrGenerationInFlight
	}
	g.inflight[id] = struct{}{}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.inflight, id)
		g.mu.Unlock()
	}()

	// Fail before the network call if the patient is unknown.
	if _, err := g.reg.Get(ctx, id); err != nil {
		return Record{}, err
	}

	summary, err := g.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return Record{}, err
	}
	return g.reg.SetSummary(ctx, id, summary)
}
