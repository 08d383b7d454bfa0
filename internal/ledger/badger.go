package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"
)

const keyPrefix = "xp"

const maxConflictRetries = 3

type totalValue struct {
	Identity  string    `msgpack:"identity"`
	Total     int       `msgpack:"total"`
	Awards    int       `msgpack:"awards"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

// BadgerLedger keeps per-identity totals in an embedded badger database.
type BadgerLedger struct {
	db *badger.DB
}

// OpenBadger opens the database at dir, or an in-memory one when dir is
// empty.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func NewBadgerLedger(db *badger.DB) *BadgerLedger {
	return &BadgerLedger{db: db}
}

func (l *BadgerLedger) key(identity string) []byte {
	return []byte(fmt.Sprintf("%s/%s", keyPrefix, identity))
}

func (l *BadgerLedger) AwardExperience(ctx context.Context, identity string, amount int) error {
	if identity == "" || amount <= 0 {
		return ErrInvalidAward
	}

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = l.db.Update(func(txn *badger.Txn) error {
			v, err := l.read(txn, identity)
			if err != nil {
				return err
			}
			v.Identity = identity
			v.Total += amount
			v.Awards++
			v.UpdatedAt = time.Now()

			buf, err := msgpack.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to marshal total: %w", err)
			}
			return txn.Set(l.key(identity), buf)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	return err
}

func (l *BadgerLedger) read(txn *badger.Txn, identity string) (totalValue, error) {
	var v totalValue
	item, err := txn.Get(l.key(identity))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &v)
	})
	return v, err
}
