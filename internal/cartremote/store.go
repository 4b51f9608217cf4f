package cartremote

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/kiranakart/cart-engine/internal/cart"
	"github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/logger"
	"github.com/kiranakart/cart-engine/pkg/redis"
)

// kv is the slice of the redis client the remote cart needs.
type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(ownerID string) string
}

// Store persists an authenticated user's cart in the shared remote medium.
// The record is authoritative per operation: each mutation re-reads the
// record, applies exactly that operation and writes the result back, so the
// medium exposes the fetch/add/set/remove/clear contract rather than blind
// snapshot overwrites.
type Store struct {
	client  kv
	ownerID string
	ttl     time.Duration
	logg    *logger.Logger
}

// New builds the remote strategy for one authenticated owner.
func New(client kv, ownerID string, ttl time.Duration, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New(errors.CodeInternal, "remote cart store requires a redis client")
	}
	if ownerID == "" {
		return nil, errors.New(errors.CodeValidation, "remote cart store requires an owner id")
	}
	return &Store{client: client, ownerID: ownerID, ttl: ttl, logg: logg}, nil
}

func (s *Store) Kind() string { return "remote" }

// Load fetches the owner's full cart record. A missing record is an empty
// cart; a corrupt one is discarded.
func (s *Store) Load(ctx context.Context) ([]cart.LineItem, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(s.ownerID))
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "fetching remote cart record")
	}

	var items []cart.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, s.ownerID), "discarding unreadable remote cart record")
		}
		return nil, nil
	}
	return items, nil
}

// Persist applies one operation to the remote record.
func (s *Store) Persist(ctx context.Context, mut cart.Mutation, _ []cart.LineItem) error {
	key := s.client.CartKey(s.ownerID)

	if mut.Op == cart.OpClear {
		if err := s.client.Del(ctx, key); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "clearing remote cart record")
		}
		return nil
	}

	record, err := s.Load(ctx)
	if err != nil {
		return err
	}

	record, changed := applyMutation(record, mut)
	if !changed {
		return nil
	}

	if len(record) == 0 {
		if err := s.client.Del(ctx, key); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "removing emptied remote cart record")
		}
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "encoding remote cart record")
	}
	if err := s.client.Set(ctx, key, string(payload), s.ttl); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "writing remote cart record")
	}
	return nil
}

// applyMutation folds a single operation into the record. Add and
// set-quantity carry the post-mutation line and upsert it; remove on an
// absent key is a no-op.
func applyMutation(record []cart.LineItem, mut cart.Mutation) ([]cart.LineItem, bool) {
	switch mut.Op {
	case cart.OpAdd, cart.OpSetQuantity:
		if mut.Item == nil {
			return record, false
		}
		for i := range record {
			if record[i].ID == mut.Key {
				record[i] = *mut.Item
				return record, true
			}
		}
		return append(record, *mut.Item), true

	case cart.OpRemove:
		for i := range record {
			if record[i].ID == mut.Key {
				return append(record[:i], record[i+1:]...), true
			}
		}
		return record, false

	default:
		return record, false
	}
}
