package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resultsKey     = "simulation_results"
	updatesChannel = "simulation_results.updated"

	// appendRetries bounds optimistic-transaction retries when several
	// gateway instances append concurrently.
	appendRetries = 5
)

// Entry is one persisted simulation result.
type Entry struct {
	SimulationID string          `json:"simulation_id"`
	Timestamp    time.Time       `json:"timestamp"`
	Results      json.RawMessage `json:"results"`
	Source       string          `json:"source"`
}

// ResultStore persists completed simulation results and notifies
// subscribers when the collection changes.
type ResultStore interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
	Subscribe(ctx context.Context) (<-chan string, func(), error)
}

// RedisStore keeps the results collection as a JSON array under a single
// key. Appends run inside a WATCH transaction so concurrent writers cannot
// silently overwrite each other's entries.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed result store.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("simulation: redis client cannot be nil")
	}
	return &RedisStore{client: client}, nil
}

// Append adds an entry to the collection and publishes an update.
func (s *RedisStore) Append(ctx context.Context, entry Entry) error {
	if entry.SimulationID == "" {
		return errors.New("simulation: entry requires a simulation id")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	txn := func(tx *redis.Tx) error {
		entries, err := decodeEntries(tx.Get(ctx, resultsKey))
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		data, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("simulation: marshal results: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, resultsKey, data, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < appendRetries; attempt++ {
		err = s.client.Watch(ctx, txn, resultsKey)
		if err == nil {
			s.client.Publish(ctx, updatesChannel, entry.SimulationID)
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("simulation: append results: %w", err)
		}
	}
	return fmt.Errorf("simulation: append contention not resolved: %w", err)
}

// List returns all stored entries, oldest first.
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	entries, err := decodeEntries(s.client.Get(ctx, resultsKey))
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Subscribe streams simulation ids as results are appended. The returned
// cancel func must be called to release the subscription.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan string, func(), error) {
	pubsub := s.client.Subscribe(ctx, updatesChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("simulation: subscribe: %w", err)
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { pubsub.Close() }, nil
}

func decodeEntries(cmd *redis.StringCmd) ([]Entry, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("simulation: load results: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("simulation: decode results: %w", err)
	}
	return entries, nil
}

// MemoryStore is an in-process ResultStore for tests and single-node dev.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	subs    map[int]chan string
	nextSub int
}

// NewMemoryStore creates an empty in-memory result store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[int]chan string)}
}

// Append adds an entry and notifies subscribers.
func (s *MemoryStore) Append(ctx context.Context, entry Entry) error {
	if entry.SimulationID == "" {
		return errors.New("simulation: entry requires a simulation id")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	for _, ch := range s.subs {
		select {
		case ch <- entry.SimulationID:
		default:
		}
	}
	s.mu.Unlock()
	return nil
}

// List returns a copy of the stored entries.
func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Subscribe streams simulation ids as results are appended.
func (s *MemoryStore) Subscribe(ctx context.Context) (<-chan string, func(), error) {
	ch := make(chan string, 8)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}
