// Package store caches segmentation results in BadgerDB, keyed by a hash
// of the analysed signal and the settings that produced them.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	xxhash "github.com/OneOfOne/xxhash"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/segmentation"
)

// ErrNotFound is returned when no result is cached under a key
var ErrNotFound = errors.New("store: not found")

const keyPrefix = "seg:"

// Key identifies one cached result
type Key string

// Options configures the store
type Options struct {
	Dir      string `json:"dir"`
	InMemory bool   `json:"in_memory"`
}

// Record is what gets persisted per key
type Record struct {
	Segmentation segmentation.Segmentation `msgpack:"segmentation"`
	Frontend     string                    `msgpack:"frontend"`
	CreatedAt    time.Time                 `msgpack:"created_at"`
}

// Store is a result cache backed by BadgerDB
type Store struct {
	db     *badger.DB
	logger logging.Logger
}

// Open opens or creates the cache
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Dir is required for on-disk mode")
	}

	logger := logging.WithFields(logging.Fields{
		"component": "result_store",
	})

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger: logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewKey hashes the signal, its rate, the configuration and the front end
// name into a cache key.
func NewKey(pcm []float64, sampleRate int, cfg segmentation.Config, frontend string) (Key, error) {
	buf := make([]byte, 8*len(pcm))
	for i, v := range pcm {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	signal := xxhash.Checksum64(buf)

	settings, err := msgpack.Marshal(struct {
		SampleRate int                 `msgpack:"sample_rate"`
		Config     segmentation.Config `msgpack:"config"`
		Frontend   string              `msgpack:"frontend"`
	}{sampleRate, cfg, frontend})
	if err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}

	return Key(fmt.Sprintf("%s%016x:%016x", keyPrefix, signal, xxhash.Checksum64(settings))), nil
}

// Get returns the cached record or ErrNotFound
func (s *Store) Get(_ context.Context, key Key) (*Record, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var rec Record
	if err := msgpack.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	s.logger.Debug("Cache hit", logging.Fields{
		"key":      string(key),
		"segments": len(rec.Segmentation.Segments),
	})
	return &rec, nil
}

// Put stores a result under key, replacing any previous one
func (s *Store) Put(_ context.Context, key Key, result segmentation.Segmentation, frontend string) error {
	val, err := msgpack.Marshal(Record{
		Segmentation: result,
		Frontend:     frontend,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// Delete removes a key. Missing keys are not an error.
func (s *Store) Delete(_ context.Context, key Key) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Count returns the number of cached results
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger output into the structured logger, with
// info and debug chatter demoted to debug.
type badgerLogger struct {
	logger logging.Logger
}

func (l badgerLogger) Errorf(f string, v ...any) {
	l.logger.Error(fmt.Errorf(f, v...), "Badger error")
}

func (l badgerLogger) Warningf(f string, v ...any) {
	l.logger.Warn(fmt.Sprintf(f, v...))
}

func (l badgerLogger) Infof(f string, v ...any) {
	l.logger.Debug(fmt.Sprintf(f, v...))
}

func (l badgerLogger) Debugf(string, ...any) {}
