package power

type entry struct {
	id       uint64
	listener Listener
	once     bool
}

// registry holds listeners per event name in attachment order.
// It is not safe for concurrent use; Monitor guards it.
type registry struct {
	nextID uint64
	byName map[EventName][]*entry
}

func newRegistry() registry {
	return registry{byName: make(map[EventName][]*entry)}
}

func (r *registry) add(name EventName, l Listener, once bool) uint64 {
	r.nextID++
	r.byName[name] = append(r.byName[name], &entry{id: r.nextID, listener: l, once: once})
	return r.nextID
}

func (r *registry) remove(name EventName, id uint64) bool {
	entries := r.byName[name]
	for i, e := range entries {
		if e.id != id {
			continue
		}
		// Copy so snapshots taken before removal stay intact.
		rest := make([]*entry, 0, len(entries)-1)
		rest = append(rest, entries[:i]...)
		rest = append(rest, entries[i+1:]...)
		if len(rest) == 0 {
			delete(r.byName, name)
		} else {
			r.byName[name] = rest
		}
		return true
	}
	return false
}

func (r *registry) removeAll(name EventName) int {
	n := len(r.byName[name])
	delete(r.byName, name)
	return n
}

func (r *registry) count(name EventName) int {
	return len(r.byName[name])
}

func (r *registry) snapshot(name EventName) []*entry {
	entries := r.byName[name]
	if len(entries) == 0 {
		return nil
	}
	return append([]*entry(nil), entries...)
}
