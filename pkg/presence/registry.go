package presence

// Callback receives the new presence value after a confirmed transition.
type Callback func(active bool)

type subscriber struct {
	id       string
	callback Callback
}

// registry keeps subscribers in registration order. It is guarded by the
// owning Detector's mutex.
type registry struct {
	entries []subscriber
}

// add inserts id, or replaces its callback in place if already registered.
func (r *registry) add(id string, cb Callback) {
	for i := range r.entries {
		if r.entries[i].id == id {
			r.entries[i].callback = cb
			return
		}
	}
	r.entries = append(r.entries, subscriber{id: id, callback: cb})
}

// remove deletes id and reports whether it was present. The backing array
// is never mutated in place, so snapshots handed to an in-flight pass stay
// intact.
func (r *registry) remove(id string) bool {
	for i := range r.entries {
		if r.entries[i].id == id {
			next := make([]subscriber, 0, len(r.entries)-1)
			next = append(next, r.entries[:i]...)
			next = append(next, r.entries[i+1:]...)
			r.entries = next
			return true
		}
	}
	return false
}

func (r *registry) has(id string) bool {
	for i := range r.entries {
		if r.entries[i].id == id {
			return true
		}
	}
	return false
}

func (r *registry) snapshot() []subscriber {
	out := make([]subscriber, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *registry) len() int {
	return len(r.entries)
}
