package campaign

import (
	"slices"
	"sync"
)

// Guard tracks which campaigns are running and caps how many may run at once.
type Guard struct {
	mu     sync.Mutex
	limit  int
	active map[int64]struct{}
}

// NewGuard creates a Guard allowing at most limit concurrent campaigns.
// limit < 1 is treated as 1.
func NewGuard(limit int) *Guard {
	return &Guard{limit: max(limit, 1), active: make(map[int64]struct{})}
}

// TryAcquire marks id active. It fails when id is already active or the cap
// is reached.
func (g *Guard) TryAcquire(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.active[id]; ok {
		return false
	}
	if len(g.active) >= g.limit {
		return false
	}
	g.active[id] = struct{}{}
	return true
}

// Release marks id inactive. Releasing an inactive id is a no-op.
func (g *Guard) Release(id int64) {
	g.mu.Lock()
	delete(g.active, id)
	g.mu.Unlock()
}

// Active returns the running campaign IDs in ascending order.
func (g *Guard) Active() []int64 {
	g.mu.Lock()
	ids := make([]int64, 0, len(g.active))
	for id := range g.active {
		ids = append(ids, id)
	}
	g.mu.Unlock()
	slices.Sort(ids)
	return ids
}
