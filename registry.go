package mongolink

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sagarc03/mongolink/settings"
)

// transport is a Client shared by one or more handles.
// refs and released are guarded by the owning Registry's mutex.
type transport struct {
	client   Client
	refs     int
	temp     bool
	released bool
}

// Handle is the live connection registered under an alias. Two handles may
// share a transport while selecting different databases.
type Handle struct {
	alias string
	name  string
	t     *transport
}

// Alias returns the alias the handle is registered under.
func (h *Handle) Alias() string { return h.alias }

// Name returns the database name selected by this alias.
func (h *Handle) Name() string { return h.name }

// Client returns the underlying transport.
func (h *Handle) Client() Client { return h.t.client }

// Database returns the alias's logical database view.
func (h *Handle) Database() Database { return h.t.client.Database(h.name) }

// Ping checks the underlying transport.
func (h *Handle) Ping(ctx context.Context) error { return h.t.client.Ping(ctx) }

// SharesTransportWith reports whether h and other use the same transport.
func (h *Handle) SharesTransportWith(other *Handle) bool {
	return other != nil && h.t == other.t
}

var errTransportReleased = errors.New("transport already released")

// Registry maps aliases to descriptors and live handles.
// A handle is only ever registered for an alias that has a descriptor.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]settings.Descriptor
	clients  map[string]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		settings: make(map[string]settings.Descriptor),
		clients:  make(map[string]*Handle),
	}
}

// Define stores d under its alias, replacing any earlier descriptor.
// An open handle for the alias is left alone until it is reconnected.
func (r *Registry) Define(d settings.Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[d.Alias] = d.Clone()
}

// Descriptor returns the descriptor registered for alias.
func (r *Registry) Descriptor(alias string) (settings.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.settings[alias]
	if !ok {
		return settings.Descriptor{}, false
	}
	return d.Clone(), true
}

// Handle returns the live handle for alias.
func (r *Registry) Handle(alias string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.clients[alias]
	return h, ok
}

// Aliases returns every defined alias in sorted order.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	aliases := make([]string, 0, len(r.settings))
	for alias := range r.settings {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)
	return aliases
}

// Connected returns the aliases with a live handle in sorted order.
func (r *Registry) Connected() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	aliases := make([]string, 0, len(r.clients))
	for alias := range r.clients {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)
	return aliases
}

// Status describes one defined alias.
type Status struct {
	Alias      string              `json:"alias"`
	Descriptor settings.Descriptor `json:"-"`
	Connected  bool                `json:"connected"`
	Shared     bool                `json:"shared"`
}

// Status reports every defined alias with passwords redacted.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.settings))
	for alias, d := range r.settings {
		s := Status{Alias: alias, Descriptor: d.Redacted()}
		if h, ok := r.clients[alias]; ok {
			s.Connected = true
			s.Shared = h.t.refs > 1
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Status) int {
		return cmp.Compare(a.Alias, b.Alias)
	})
	return out
}

// attach registers a handle for alias on t.
func (r *Registry) attach(alias, name string, t *transport) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attachLocked(alias, name, t)
}

func (r *Registry) attachLocked(alias, name string, t *transport) (*Handle, error) {
	if _, ok := r.settings[alias]; !ok {
		return nil, fmt.Errorf("attach %q: %w", alias, ErrConnectionNotDefined)
	}
	if _, ok := r.clients[alias]; ok {
		return nil, fmt.Errorf("attach %q: alias already connected", alias)
	}
	if t.released {
		return nil, fmt.Errorf("attach %q: %w", alias, errTransportReleased)
	}
	t.refs++
	h := &Handle{alias: alias, name: name, t: t}
	r.clients[alias] = h
	return h, nil
}

// attachShared looks for another connected alias whose descriptor is
// equivalent to d and, if found, registers a handle on its transport.
// The scan and the attach happen under one lock so the found transport
// cannot be released in between.
func (r *Registry) attachShared(d settings.Descriptor) (*Handle, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for alias, other := range r.settings {
		if alias == d.Alias {
			continue
		}
		h, ok := r.clients[alias]
		if !ok || h.t.temp {
			continue
		}
		if !d.Equivalent(other) {
			continue
		}
		shared, err := r.attachLocked(d.Alias, d.Name, h.t)
		if err != nil {
			return nil, "", false
		}
		return shared, alias, true
	}
	return nil, "", false
}

// detach removes the handle for alias. last is true when no other handle
// uses the transport any more and it should be closed.
func (r *Registry) detach(alias string) (h *Handle, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.clients[alias]
	if !ok {
		return nil, false
	}
	delete(r.clients, alias)
	h.t.refs--
	if h.t.refs == 0 {
		h.t.released = true
	}
	return h, h.t.released
}
