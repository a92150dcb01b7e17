package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/fidelia-cart/internal/pricing"
	"github.com/noah-isme/fidelia-cart/internal/promo"
)

// State is the authoritative cart snapshot shared by every screen.
type State struct {
	ID        string         `json:"id"`
	Lines     []pricing.Line `json:"lines"`
	Promo     *promo.Code    `json:"promo,omitempty"`
	Tip       pricing.Money  `json:"tip"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Discount returns the active promo amount or 0.
func (s State) Discount() pricing.Money {
	if s.Promo == nil {
		return 0
	}
	return s.Promo.Amount
}

// Store persists cart state between requests.
type Store interface {
	Get(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, state State) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore constructs an in-memory store. A non-positive ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Get returns a copy of the cart or ErrNotFound.
func (m *MemoryStore) Get(_ context.Context, id string) (State, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return State{}, ErrNotFound
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return State{}, ErrNotFound
	}
	return cloneState(entry.state), nil
}

// Save stores a copy of the cart and refreshes its expiry.
func (m *MemoryStore) Save(_ context.Context, state State) error {
	if state.ID == "" {
		return fmt.Errorf("cart id required: %w", ErrInvalidInput)
	}
	var expires time.Time
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[state.ID] = memoryEntry{state: cloneState(state), expires: expires}
	m.mu.Unlock()
	return nil
}

// Delete removes the cart. Deleting an unknown cart is not an error.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// RedisStore wraps Redis helpers for JSON cart payloads.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "fidelia:cart:"}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

// Get unmarshals the cached cart payload.
func (r *RedisStore) Get(ctx context.Context, id string) (State, error) {
	if r == nil || r.client == nil {
		return State{}, errors.New("redis store not configured")
	}
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrNotFound
		}
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode cart %s: %w", id, err)
	}
	return state, nil
}

// Save serialises the cart as JSON and stores it with the configured TTL.
func (r *RedisStore) Save(ctx context.Context, state State) error {
	if r == nil || r.client == nil {
		return errors.New("redis store not configured")
	}
	if state.ID == "" {
		return fmt.Errorf("cart id required: %w", ErrInvalidInput)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(state.ID), data, r.ttl).Err()
}

// Delete removes the cart key.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if r == nil || r.client == nil {
		return errors.New("redis store not configured")
	}
	return r.client.Del(ctx, r.key(id)).Err()
}

// Ping checks Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("redis store not configured")
	}
	return r.client.Ping(ctx).Err()
}

func cloneState(s State) State {
	out := s
	if s.Lines != nil {
		out.Lines = make([]pricing.Line, len(s.Lines))
		for i, l := range s.Lines {
			l.OptionPrices = append([]pricing.Money(nil), l.OptionPrices...)
			out.Lines[i] = l
		}
	}
	if s.Promo != nil {
		p := *s.Promo
		out.Promo = &p
	}
	return out
}
