// Package localstore keeps the portal's collections (users, chats, activities...) as JSON arrays
// in a key-value backend, one key per collection.
package localstore

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
)

// Collections
const (
	CollectionUsers       = "users"
	CollectionChats       = "chats"
	CollectionDocuments   = "documents"
	CollectionActivities  = "activities"
	CollectionSubjects    = "subjects"
	CollectionReports     = "reports"
	CollectionModelConfig = "modelConfig"
	CollectionAuth        = "auth"
)

type Options struct {
	Namespace string
	// Strict makes Read fail with core.ErrMalformedRecord instead of reading a malformed collection as empty.
	Strict bool
	Logger core.Logger
}

// Store reads & writes whole collections. Every Write replaces the collection in a single backend Set.
type Store struct {
	kv        core.KVStore
	namespace string
	strict    bool
	logger    core.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(kv core.KVStore, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = core.NewNopLogger()
	}
	return &Store{
		kv:        kv,
		namespace: opts.Namespace,
		strict:    opts.Strict,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *Store) key(collection string) string {
	if s.namespace == "" {
		return collection
	}
	return s.namespace + ":" + collection
}

// Read decodes the collection into dst, a pointer to a slice.
// A missing collection reads as empty. A malformed one reads as empty too, unless the Store is strict.
func (s *Store) Read(ctx context.Context, collection string, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return errors.Errorf("localstore: Read(%q) needs a pointer to a slice, got %T", collection, dst)
	}
	reset := func() { rv.Elem().Set(reflect.MakeSlice(rv.Elem().Type(), 0, 0)) }
	reset()

	data, err := s.kv.Get(ctx, s.key(collection))
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return nil
		}
		return &core.StorageError{Op: "read", Collection: collection, Err: err}
	}
	if len(data) == 0 {
		return nil
	}

	if err = json.Unmarshal(data, dst); err != nil {
		reset()
		if s.strict {
			return errors.Wrapf(core.ErrMalformedRecord, "decoding %q: %v", collection, err)
		}
		s.logger.Warn("malformed collection read as empty", err, map[string]interface{}{"collection": collection})
		return nil
	}
	if rv.Elem().IsNil() { // JSON null
		reset()
	}
	return nil
}

// Write replaces the whole collection with records.
func (s *Store) Write(ctx context.Context, collection string, records interface{}) error {
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrapf(err, "encoding %q", collection)
	}
	if err = s.kv.Set(ctx, s.key(collection), data); err != nil {
		return &core.StorageError{Op: "write", Collection: collection, Err: err}
	}
	return nil
}

// Update runs a read-modify-write cycle on the collection while holding the collection's lock.
// dst (a pointer to a slice) is loaded, then fn mutates it and reports whether it must be written back.
// The lock only serializes updates within this process.
func (s *Store) Update(ctx context.Context, collection string, dst interface{}, fn func() (bool, error)) error {
	mu := s.lock(collection)
	mu.Lock()
	defer mu.Unlock()

	if err := s.Read(ctx, collection, dst); err != nil {
		return err
	}
	changed, err := fn()
	if err != nil || !changed {
		return err
	}
	return s.Write(ctx, collection, dst)
}

func (s *Store) lock(collection string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[collection]
	if !ok {
		mu = new(sync.Mutex)
		s.locks[collection] = mu
	}
	return mu
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}
