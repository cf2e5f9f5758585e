// Package store caches parse results in a bbolt database, keyed by the
// source text they were computed from.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	bolt "go.etcd.io/bbolt"
	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/logutil"
	"src.marktree.dev/pkg/parse"
)

var logger = logutil.GetLogger("marktree.store")

// Version of the encoding of entries. Entries written with other versions are
// never found.
const formatVersion = 2

const bucketTrees = "trees"

// Functions run when a database is opened, keyed by description.
var initDB = map[string]func(*bolt.Tx) error{
	"initialize parse cache": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketTrees))
		return err
	},
}

// Entry is a cached parse result.
type Entry struct {
	Tree        *parse.Node  `json:"tree"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	// Hash of Tree, checked when the entry is read back.
	TreeHash uint64 `json:"hash"`
}

// Diagnostic is a cached diagnostic. It does not record the name of the
// source, which may differ between sources with the same text.
type Diagnostic struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// -1 when the diagnostic has no position.
	From int `json:"from"`
	To   int `json:"to"`
}

// Diagnostics converts diagnostics for caching.
func Diagnostics(errs []*diag.Error) []Diagnostic {
	var ds []Diagnostic
	for _, e := range errs {
		r := e.Range()
		ds = append(ds, Diagnostic{e.Type, e.Message, r.From, r.To})
	}
	return ds
}

// Error restores the diagnostic for the source with the given name and text.
func (d Diagnostic) Error(name, source string) *diag.Error {
	e := &diag.Error{Type: d.Type, Message: d.Message}
	r := diag.Ranging{From: d.From, To: d.To}
	if r.Known() && r.To <= len(source) {
		e.Context = diag.NewContext(name, source, r)
	}
	return e
}

// Store is a parse cache. It is safe for concurrent use.
type Store struct {
	db      *bolt.DB
	variant string
}

// Option configures a Store.
type Option func(*Store)

// WithVariant separates entries by variant, such as the parse options used to
// compute them.
func WithVariant(variant string) Option {
	return func(s *Store) { s.variant = variant }
}

var errNotDB = errors.New("not a cache database")

// Open opens or creates the cache database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrInvalid) {
			return nil, fmt.Errorf("open %s: %w", path, errNotDB)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) key(source string) []byte {
	k := make([]byte, 9)
	k[0] = formatVersion
	d := xxhash.New()
	d.WriteString(s.variant)
	d.Write([]byte{0})
	d.WriteString(source)
	binary.BigEndian.PutUint64(k[1:], d.Sum64())
	return k
}

// Get looks up the entry for source. An entry whose tree does not match its
// hash is deleted and reported as missing.
func (s *Store) Get(source string) (Entry, bool, error) {
	var data []byte
	k := s.key(source)
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketTrees)).Get(k); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || e.Tree == nil || e.Tree.Hash() != e.TreeHash {
		logger.Warningf("dropping corrupt cache entry %x", k)
		return Entry{}, false, s.delete(k)
	}
	return e, true, nil
}

// Put stores the entry for source. The hash of the entry is computed from its
// tree.
func (s *Store) Put(source string, e Entry) error {
	e.TreeHash = e.Tree.Hash()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTrees)).Put(s.key(source), data)
	})
}

func (s *Store) delete(k []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTrees)).Delete(k)
	})
}

// Len returns the number of entries.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketTrees)).Stats().KeyN
		return nil
	})
	return n, err
}
