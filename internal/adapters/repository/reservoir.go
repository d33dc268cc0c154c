// Package repository holds the bounded, ranked path reservoir.
package repository

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/pkg/metrics"
)

// Treap-based, in-memory reservoir of scored paths.
//
// Ordering: score DESC, log score DESC, key ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the best path
// first. Nodes carry subtree sizes so a trim can split by rank.

const (
	defaultHighWatermark = 5000
	defaultLowWatermark  = 100
)

type node struct {
	path  model.ScoredPath
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether a ranks before b.
func less(a, b *model.ScoredPath) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.LogScore != b.LogScore {
		return a.LogScore > b.LogScore
	}
	return a.Key < b.Key
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(&nn.path, &n.path) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// splitByRank returns the first k nodes in rank order and the rest.
func splitByRank(n *node, k int) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	if nsize(n.left) >= k {
		l, r := splitByRank(n.left, k)
		n.left = r
		fix(n)
		return l, n
	}
	l, r := splitByRank(n.right, k-nsize(n.left)-1)
	n.right = l
	fix(n)
	return n, r
}

// collectTopN appends up to limit paths in rank order.
func collectTopN(n *node, limit int, out *[]model.ScoredPath) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.path)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// forEach visits every node.
func forEach(n *node, fn func(*node)) {
	if n == nil {
		return
	}
	forEach(n.left, fn)
	fn(n)
	forEach(n.right, fn)
}

// Reservoir keeps the best scored paths seen during a search. When it grows
// past the high watermark it is cut back to the low watermark best entries.
// Paths are deduplicated by key. It is safe for concurrent use.
type Reservoir struct {
	mu    sync.Mutex
	root  *node
	byKey map[string]struct{}
	rng   *rand.Rand
	seed  uint64
	high  int
	low   int
	trims int
}

// NewReservoir constructs an empty reservoir.
func NewReservoir(opts ...Option) *Reservoir {
	r := &Reservoir{
		byKey: make(map[string]struct{}),
		high:  defaultHighWatermark,
		low:   defaultLowWatermark,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.rng = rand.New(rand.NewPCG(r.seed, r.seed^0x9e3779b97f4a7c15))
	metrics.UpdateReservoirSize(0)
	return r
}

// Offer adds path unless an identical path is already retained.
// It reports whether the path was inserted.
func (r *Reservoir) Offer(_ context.Context, path model.ScoredPath) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byKey[path.Key]; dup {
		metrics.RecordReservoirDuplicate()
		return false
	}
	r.byKey[path.Key] = struct{}{}
	r.root = insert(r.root, &node{path: path, prio: r.rng.Uint64(), size: 1})
	metrics.RecordReservoirInsert()

	if nsize(r.root) > r.high {
		r.trim()
	}
	return true
}

// trim keeps the low watermark best entries. Caller holds mu.
func (r *Reservoir) trim() {
	keep, drop := splitByRank(r.root, r.low)
	forEach(drop, func(n *node) { delete(r.byKey, n.path.Key) })
	r.root = keep
	r.trims++
	metrics.RecordReservoirTrim()
	metrics.UpdateReservoirSize(nsize(r.root))
}

// TopN returns the best n paths, best first.
func (r *Reservoir) TopN(_ context.Context, n int) ([]model.ScoredPath, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.ScoredPath, 0, min(n, nsize(r.root)))
	collectTopN(r.root, n, &out)
	metrics.UpdateReservoirSize(nsize(r.root))
	return out, nil
}

// Best returns the highest ranked path.
func (r *Reservoir) Best(_ context.Context) (model.ScoredPath, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.root
	if n == nil {
		return model.ScoredPath{}, false
	}
	for n.left != nil {
		n = n.left
	}
	return n.path, true
}

// Count returns the number of retained paths.
func (r *Reservoir) Count(_ context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return nsize(r.root)
}

// Trims returns how many compactions happened.
func (r *Reservoir) Trims() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trims
}
