// Package presets holds the quick-add button registry, decoupled from the
// entry log.
package presets

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"sorso/internal/core"
)

// MaxPresets caps the registry size. The quick-add surface only ever shows
// the first three by order.
const MaxPresets = 12

var ErrRegistryFull = errors.New("preset registry full")

type Registry struct {
	mu    sync.Mutex
	items []core.ButtonPreset
}

// New seeds a registry. Invalid or overflowing seed presets are dropped.
func New(seed []core.ButtonPreset) *Registry {
	r := &Registry{}
	for _, p := range seed {
		_ = r.Add(p)
	}
	return r
}

// Add appends a preset, assigning an id when missing. The only validation
// is a positive amount.
func (r *Registry) Add(p core.ButtonPreset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) >= MaxPresets {
		return ErrRegistryFull
	}
	r.items = append(r.items, p)
	return nil
}

// Presets returns all presets sorted ascending by order. Duplicate orders
// keep their insertion order.
func (r *Registry) Presets() []core.ButtonPreset {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]core.ButtonPreset(nil), r.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
