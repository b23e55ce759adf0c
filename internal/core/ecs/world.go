package ecs

// World owns the actor arena: the slot pool, every registered component
// store, and the creation-ordered handle list that round snapshots copy.
//
// Actors are never removed while a round iterates. Death marks the actor and
// queues it here; CleanupSystem flushes the queue after the frame's round
// has finished.
type World struct {
	pool         *EntityPool
	stores       []Removable
	order        []EntityID
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		stores:       make([]Removable, 0, 8),
		order:        make([]EntityID, 0, 64),
		destroyQueue: make([]EntityID, 0, 16),
	}
}

// Register adds a component store so destroyed actors are removed from it.
func (w *World) Register(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World) CreateEntity() EntityID {
	id := w.pool.Create()
	w.order = append(w.order, id)
	return id
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Len counts slots not yet flushed, including actors pending destruction.
func (w *World) Len() int { return len(w.order) }

// Snapshot copies the handle list in creation order. Later creation or
// destruction does not affect the returned slice.
func (w *World) Snapshot() []EntityID {
	out := make([]EntityID, len(w.order))
	copy(out, w.order)
	return out
}

// MarkForDestruction queues an actor for the next flush. Queuing twice is
// harmless.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// Pending reports how many destructions are queued.
func (w *World) Pending() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys every queued actor, strips its components, and
// drops it from the creation order. Returns the number actually destroyed.
func (w *World) FlushDestroyQueue() int {
	if len(w.destroyQueue) == 0 {
		return 0
	}
	gone := make(map[EntityID]struct{}, len(w.destroyQueue))
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		for _, s := range w.stores {
			s.Remove(id)
		}
		w.pool.Destroy(id)
		gone[id] = struct{}{}
	}
	w.destroyQueue = w.destroyQueue[:0]
	if len(gone) == 0 {
		return 0
	}
	kept := w.order[:0]
	for _, id := range w.order {
		if _, dead := gone[id]; !dead {
			kept = append(kept, id)
		}
	}
	w.order = kept
	return len(gone)
}
