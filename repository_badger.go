package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Key layout:
//
//	rec:<20 digit id>  -> JSON encoded Recommendation
//	name:<name>        -> decimal id
//	seq:recommendations   id sequence
const (
	recKeyPrefix  = "rec:"
	nameKeyPrefix = "name:"
	idSequenceKey = "seq:recommendations"

	idSequenceBandwidth = 100

	badgerConflictRetries = 5
)

// BadgerRepository stores recommendations in an embedded BadgerDB.
type BadgerRepository struct {
	db  *badger.DB
	seq *badger.Sequence

	// serializes read-write transactions so votes on one record do not
	// abort each other
	writeMu sync.Mutex
}

// NewBadgerRepository opens a BadgerDB under dir. An empty dir or ":memory:"
// keeps everything in memory.
func NewBadgerRepository(dir string) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" || dir == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dir, err)
	}
	seq, err := db.GetSequence([]byte(idSequenceKey), idSequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("id sequence: %w", err)
	}
	log.Info().Str("dir", dir).Msg("opened badger store")
	return &BadgerRepository{db: db, seq: seq}, nil
}

func recKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", recKeyPrefix, id))
}

func nameKey(name string) []byte {
	return []byte(nameKeyPrefix + name)
}

func (r *BadgerRepository) Create(ctx context.Context, rec Recommendation) (*Recommendation, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	next, err := r.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("next id: %w", err)
	}
	// sequences start at zero; ids start at one like the sql backends
	rec.ID = int64(next) + 1

	err = r.updateLocked(func(txn *badger.Txn) error {
		_, err := txn.Get(nameKey(rec.Name))
		if err == nil {
			return fmt.Errorf("%w: name %q already exists", ErrConflict, rec.Name)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get name index: %w", err)
		}
		if err := putRecommendation(txn, rec); err != nil {
			return err
		}
		return txn.Set(nameKey(rec.Name), []byte(strconv.FormatInt(rec.ID, 10)))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *BadgerRepository) FindByName(ctx context.Context, name string) (*Recommendation, error) {
	var rec *Recommendation
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get name index: %w", err)
		}

		var id int64
		err = item.Value(func(val []byte) error {
			id, err = strconv.ParseInt(string(val), 10, 64)
			return err
		})
		if err != nil {
			return fmt.Errorf("decode name index: %w", err)
		}
		rec, err = getRecommendation(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *BadgerRepository) FindByID(ctx context.Context, id int64) (*Recommendation, error) {
	var rec *Recommendation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecommendation(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *BadgerRepository) FindAll(ctx context.Context, filter *ScoreFilter) ([]Recommendation, error) {
	recs := make([]Recommendation, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recKeyPrefix)
		// reverse iteration seeks to the largest key <= the seek key
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			var rec Recommendation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode recommendation: %w", err)
			}
			if filter == nil || filter.matches(rec.Score) {
				recs = append(recs, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *BadgerRepository) GetTopByScore(ctx context.Context, amount int) ([]Recommendation, error) {
	recs, err := r.FindAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	sortByScore(recs)
	if len(recs) > amount {
		recs = recs[:amount]
	}
	return recs, nil
}

func (r *BadgerRepository) UpdateScore(ctx context.Context, id int64, direction ScoreDirection) (*Recommendation, error) {
	var rec *Recommendation
	err := r.update(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecommendation(txn, id)
		if err != nil {
			return err
		}
		rec.Score += int(direction)
		return putRecommendation(txn, *rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *BadgerRepository) Remove(ctx context.Context, id int64) error {
	return r.update(func(txn *badger.Txn) error {
		rec, err := getRecommendation(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(recKey(id)); err != nil {
			return fmt.Errorf("delete recommendation %d: %w", id, err)
		}
		return txn.Delete(nameKey(rec.Name))
	})
}

// Reset drops every record and restarts ids at 1, like the sql backends.
func (r *BadgerRepository) Reset(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.seq.Release(); err != nil {
		return fmt.Errorf("release id sequence: %w", err)
	}
	err := r.db.DropPrefix([]byte(recKeyPrefix), []byte(nameKeyPrefix), []byte(idSequenceKey))
	if err != nil {
		return fmt.Errorf("reset recommendations: %w", err)
	}
	seq, err := r.db.GetSequence([]byte(idSequenceKey), idSequenceBandwidth)
	if err != nil {
		return fmt.Errorf("id sequence: %w", err)
	}
	r.seq = seq
	return nil
}

func (r *BadgerRepository) Close() error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.seq.Release(); err != nil {
		log.Warn().Err(err).Msg("failed to release id sequence")
	}
	return r.db.Close()
}

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction touched the same keys.
func (r *BadgerRepository) update(fn func(txn *badger.Txn) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.updateLocked(fn)
}

func (r *BadgerRepository) updateLocked(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < badgerConflictRetries; attempt++ {
		err = r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("badger transaction: %w", err)
}

func getRecommendation(txn *badger.Txn, id int64) (*Recommendation, error) {
	item, err := txn.Get(recKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation %d: %w", id, err)
	}

	rec := &Recommendation{}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode recommendation %d: %w", id, err)
	}
	return rec, nil
}

func putRecommendation(txn *badger.Txn, rec Recommendation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recommendation: %w", err)
	}
	if err := txn.Set(recKey(rec.ID), data); err != nil {
		return fmt.Errorf("set recommendation %d: %w", rec.ID, err)
	}
	return nil
}
