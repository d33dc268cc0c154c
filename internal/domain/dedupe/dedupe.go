// Package dedupe guards against running identical work concurrently.
//
// A key is held from Acquire until Release. Unlike an idempotency log the
// guard forgets a key as soon as its work finishes, so a later identical
// request runs again.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 64

// Guard tracks keys of in-flight work.
type Guard interface {
	// Acquire records key. It fails with ErrInFlight when key is already
	// held and with ErrCapacity when the guard is full.
	Acquire(ctx context.Context, key string) error

	// Release forgets key. Releasing an unknown key is a no-op.
	Release(ctx context.Context, key string)

	// Size returns the number of held keys.
	Size() int64
}

type inMemoryGuard struct {
	mu      sync.Mutex
	held    map[string]struct{}
	maxSize int
	size    atomic.Int64
}

// NewInMemoryGuard creates a guard with configuration options.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(g)
	}
	g.held = make(map[string]struct{})
	return g
}

func (g *inMemoryGuard) Acquire(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[key]; ok {
		return ErrInFlight
	}
	if g.maxSize > 0 && len(g.held) >= g.maxSize {
		return ErrCapacity
	}
	g.held[key] = struct{}{}
	g.size.Add(1)
	return nil
}

func (g *inMemoryGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[key]; ok {
		delete(g.held, key)
		g.size.Add(-1)
	}
}

func (g *inMemoryGuard) Size() int64 { return g.size.Load() }

// Key derives a stable key from any JSON-encodable value.
// Map keys are sorted by encoding/json, so equal requests hash equally.
func Key(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode key: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
