package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/soroban-labs/mastery"
)

// BadgerConfig configures an embedded Badger database.
type BadgerConfig struct {
	// Path is the directory for database files. Required unless
	// InMemory is set.
	Path string

	// InMemory disables disk persistence. Useful for tests.
	InMemory bool

	// SyncWrites forces an fsync on every commit.
	SyncWrites bool

	// Logger receives Badger's internal log output. Nil disables it.
	Logger *zap.Logger
}

// OpenBadger opens a Badger database. The caller owns the returned
// handle and must close it; the stores built on top of it do not.
func OpenBadger(cfg BadgerConfig) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: badger path required for persistent database")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return db, nil
}

// badgerLogger adapts zap to Badger's logger interface.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// txnRetries bounds commit retries after write conflicts.
const txnRetries = 5

func stateKey(playerID, skillID string) []byte {
	return []byte("state/" + playerID + "/" + skillID)
}

func deferralKey(playerID, skillID string) []byte {
	return []byte("defer/" + playerID + "/" + skillID)
}

// BadgerStates is a [StateStore] backed by an embedded Badger database.
// States are stored as JSON under state/<player>/<skill>.
type BadgerStates struct {
	db *badger.DB
}

// NewBadgerStates creates a state store on an open database.
func NewBadgerStates(db *badger.DB) *BadgerStates {
	return &BadgerStates{db: db}
}

var _ StateStore = (*BadgerStates)(nil)

func (b *BadgerStates) Get(ctx context.Context, playerID, skillID string) (mastery.BeliefState, error) {
	if err := ctx.Err(); err != nil {
		return mastery.BeliefState{}, err
	}

	var state mastery.BeliefState
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(playerID, skillID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		return mastery.BeliefState{}, err
	}
	return state, nil
}

func (b *BadgerStates) Update(ctx context.Context, playerID, skillID string, fn UpdateFunc) (mastery.BeliefState, error) {
	key := stateKey(playerID, skillID)

	var result mastery.BeliefState
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return mastery.BeliefState{}, err
		}

		err := b.db.Update(func(txn *badger.Txn) error {
			var current mastery.BeliefState
			ok := true

			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				ok = false
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &current)
				}); err != nil {
					return err
				}
			}

			next, err := fn(current, ok)
			if err != nil {
				return err
			}

			buf, err := json.Marshal(next)
			if err != nil {
				return err
			}
			result = next
			return txn.Set(key, buf)
		})
		if errors.Is(err, badger.ErrConflict) && attempt < txnRetries {
			continue
		}
		if err != nil {
			return mastery.BeliefState{}, err
		}
		return result, nil
	}
}

func (b *BadgerStates) Player(ctx context.Context, playerID string) (map[string]mastery.BeliefState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]mastery.BeliefState)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("state/" + playerID + "/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var state mastery.BeliefState
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &state)
			}); err != nil {
				return err
			}
			out[state.SkillID] = state
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close is a no-op; the caller owns the database handle.
func (b *BadgerStates) Close() error { return nil }

// BadgerDeferrals is a [DeferralStore] backed by an embedded Badger
// database, stored as JSON under defer/<player>/<skill>. It can share
// a database with [BadgerStates].
type BadgerDeferrals struct {
	db *badger.DB
}

// NewBadgerDeferrals creates a deferral store on an open database.
func NewBadgerDeferrals(db *badger.DB) *BadgerDeferrals {
	return &BadgerDeferrals{db: db}
}

var _ DeferralStore = (*BadgerDeferrals)(nil)

func (b *BadgerDeferrals) Upsert(ctx context.Context, d mastery.Deferral) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(deferralKey(d.PlayerID, d.SkillID), buf)
	})
}

func (b *BadgerDeferrals) Get(ctx context.Context, playerID, skillID string) (mastery.Deferral, error) {
	if err := ctx.Err(); err != nil {
		return mastery.Deferral{}, err
	}

	var d mastery.Deferral
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(deferralKey(playerID, skillID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		})
	})
	if err != nil {
		return mastery.Deferral{}, err
	}
	return d, nil
}

func (b *BadgerDeferrals) Delete(ctx context.Context, playerID, skillID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(deferralKey(playerID, skillID))
	})
}

func (b *BadgerDeferrals) Player(ctx context.Context, playerID string) ([]mastery.Deferral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []mastery.Deferral
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("defer/" + playerID + "/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var d mastery.Deferral
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			}); err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close is a no-op; the caller owns the database handle.
func (b *BadgerDeferrals) Close() error { return nil }
