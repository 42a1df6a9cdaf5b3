package buff

import "sort"

// Registry maps buff names to their live state. It is not safe for concurrent
// use; the Controller serialises every access.
type Registry struct {
	buffs map[string]*Buff
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{buffs: make(map[string]*Buff)}
}

// Get returns the buff registered under name.
func (r *Registry) Get(name string) (*Buff, bool) {
	b, ok := r.buffs[name]
	return b, ok
}

// Put registers b under its name, replacing any previous entry.
func (r *Registry) Put(b *Buff) {
	r.buffs[b.Name] = b
}

// Delete removes the entry for name and reports whether it existed.
func (r *Registry) Delete(name string) bool {
	if _, ok := r.buffs[name]; !ok {
		return false
	}
	delete(r.buffs, name)
	return true
}

// Len returns the number of active buffs.
func (r *Registry) Len() int {
	return len(r.buffs)
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.buffs))
	for name := range r.buffs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Views returns snapshots of every buff, oldest first.
func (r *Registry) Views() []View {
	views := make([]View, 0, len(r.buffs))
	for _, b := range r.buffs {
		views = append(views, b.view())
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].AddedAt.Equal(views[j].AddedAt) {
			return views[i].Name < views[j].Name
		}
		return views[i].AddedAt.Before(views[j].AddedAt)
	})
	return views
}
