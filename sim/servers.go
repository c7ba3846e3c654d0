package sim

import (
	"container/heap"
	"fmt"
	"slices"
)

// idHeap is a min-heap of server ids.
type idHeap []int

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *idHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// ServerPool is a fixed set of interchangeable servers numbered 1..N.
// Allocation always hands out the lowest free id, which keeps runs reproducible.
type ServerPool struct {
	size int
	free idHeap
	busy map[int]struct{}
}

// NewServerPool creates a pool of size servers, all free.
func NewServerPool(size int) *ServerPool {
	if size < 0 {
		panic(fmt.Sprintf("NewServerPool: size must be non-negative, got %d", size))
	}
	p := &ServerPool{
		size: size,
		free: make(idHeap, 0, size),
		busy: make(map[int]struct{}, size),
	}
	for id := 1; id <= size; id++ {
		p.free = append(p.free, id)
	}
	heap.Init(&p.free)
	return p
}

// Size returns the total number of servers.
func (p *ServerPool) Size() int {
	return p.size
}

// IsAvailable reports whether at least one server is free.
func (p *ServerPool) IsAvailable() bool {
	return p.free.Len() > 0
}

// AvailableCount returns the number of free servers.
func (p *ServerPool) AvailableCount() int {
	return p.free.Len()
}

// BusyCount returns the number of servers in use.
func (p *ServerPool) BusyCount() int {
	return len(p.busy)
}

// Allocate marks the lowest free server busy and returns its id.
func (p *ServerPool) Allocate() (int, error) {
	if p.free.Len() == 0 {
		return 0, ErrNoCapacity
	}
	id := heap.Pop(&p.free).(int)
	p.busy[id] = struct{}{}
	return id, nil
}

// Release returns a busy server to the free set.
func (p *ServerPool) Release(id int) error {
	if _, ok := p.busy[id]; !ok {
		return fmt.Errorf("releasing server %d: %w", id, ErrInvalidServer)
	}
	delete(p.busy, id)
	heap.Push(&p.free, id)
	return nil
}

// Free returns the free server ids in ascending order.
func (p *ServerPool) Free() []int {
	ids := slices.Clone([]int(p.free))
	slices.Sort(ids)
	return ids
}

// Busy returns the busy server ids in ascending order.
func (p *ServerPool) Busy() []int {
	ids := make([]int, 0, len(p.busy))
	for id := range p.busy {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
