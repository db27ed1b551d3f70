package realtime

import (
	"sort"
	"strconv"
	"sync"
)

type entry struct {
	sub *Subscription
	cb  Callback
}

// Registry maps destinations to callbacks, one per destination.
type Registry struct {
	mu     sync.RWMutex
	subs   map[string]entry
	nextID int
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]entry)}
}

// Add registers cb for destination and returns the new handle along with
// the one it replaced, if any.
func (r *Registry) Add(destination string, cb Callback) (sub, replaced *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.subs[destination]; ok {
		replaced = old.sub
	}
	r.nextID++
	sub = &Subscription{ID: "sub-" + strconv.Itoa(r.nextID), Destination: destination}
	r.subs[destination] = entry{sub: sub, cb: cb}
	return sub, replaced
}

func (r *Registry) Remove(destination string) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.subs[destination]
	if !ok {
		return nil
	}
	delete(r.subs, destination)
	return old.sub
}

func (r *Registry) Lookup(destination string) (Callback, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.subs[destination]
	return e.cb, ok
}

// LookupID finds a callback by subscription id.
func (r *Registry) LookupID(id string) (Callback, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.subs {
		if e.sub.ID == id {
			return e.cb, true
		}
	}
	return nil, false
}

// All returns the current handles ordered by destination.
func (r *Registry) All() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Subscription, 0, len(r.subs))
	for _, e := range r.subs {
		out = append(out, e.sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
