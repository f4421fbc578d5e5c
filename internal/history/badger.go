package history

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Conceptual-Machines/musicability-api/internal/models"
)

const (
	recordPrefix = "rec/"
	indexPrefix  = "idx/"
	userPrefix   = "usr/"
)

// Badger is a Store backed by an embedded BadgerDB.
//
// Records live under rec/<id> as msgpack. A second key per record,
// idx/<inverted created_at>/<id>, lets List walk newest first with a plain
// forward iterator. Records with an owner also get
// usr/<hex user id>/<inverted created_at>/<id> for per-user listing.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger's own log output. Nil silences it.
	Logger badger.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("history: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(opts.Logger)

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("history: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func indexKey(r *models.GenerationRecord) []byte {
	return timeKey(indexPrefix, r)
}

// userIndexPrefix hex-encodes the user id so a "/" inside it cannot
// collide with another user's keys.
func userIndexPrefix(userID string) string {
	return userPrefix + hex.EncodeToString([]byte(userID)) + "/"
}

func timeKey(prefix string, r *models.GenerationRecord) []byte {
	inverted := uint64(math.MaxInt64 - r.CreatedAt.UnixNano())
	return []byte(fmt.Sprintf("%s%016x/%s", prefix, inverted, r.ID))
}

func indexKeys(r *models.GenerationRecord) [][]byte {
	keys := [][]byte{indexKey(r)}
	if r.UserID != "" {
		keys = append(keys, timeKey(userIndexPrefix(r.UserID), r))
	}
	return keys
}

func (b *Badger) Save(_ context.Context, r *models.GenerationRecord) error {
	if err := validate(r); err != nil {
		return err
	}
	val, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("history: encode record %s: %w", r.ID, err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		// Drop the index entries of a replaced record.
		prev, err := getRecord(txn, r.ID)
		switch {
		case err == nil:
			for _, key := range indexKeys(prev) {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		if err := txn.Set(recordKey(r.ID), val); err != nil {
			return err
		}
		for _, key := range indexKeys(r) {
			if err := txn.Set(key, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Badger) Get(_ context.Context, id string) (*models.GenerationRecord, error) {
	var r *models.GenerationRecord
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b *Badger) List(ctx context.Context, userID string, limit int) ([]models.GenerationRecord, error) {
	limit = ClampLimit(limit)
	prefix := []byte(indexPrefix)
	if userID != "" {
		prefix = []byte(userIndexPrefix(userID))
	}
	records := make([]models.GenerationRecord, 0, limit)

	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			// <prefix><16 hex digits>/<id>
			id := string(key[len(prefix)+17:])
			r, err := getRecord(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			records = append(records, *r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (b *Badger) Ping(_ context.Context) error {
	if b.db.IsClosed() {
		return errors.New("history: badger is closed")
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func getRecord(txn *badger.Txn, id string) (*models.GenerationRecord, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r models.GenerationRecord
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &r)
	})
	if err != nil {
		return nil, fmt.Errorf("history: decode record %s: %w", id, err)
	}
	return &r, nil
}

var _ Store = (*Badger)(nil)
