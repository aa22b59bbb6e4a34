// Package bolt is a Storage backed by bbolt.
//
// Definition sources live in the "definitions" bucket keyed by name.
// Run records live in the "runs" bucket, which has a nested bucket
// for each definition keyed by the run id.
package bolt

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Comcast/kexec/storage"

	bolt "go.etcd.io/bbolt"
)

var (
	definitionsBucket = []byte("definitions")
	runsBucket        = []byte("runs")
)

type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

// Open opens (or creates) the database and its buckets.
func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{definitionsBucket, runsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB Storage."+format, args...)
	}
}

func (s *Storage) PutDefinition(ctx context.Context, name string, src []byte) error {
	s.logf("PutDefinition %s", name)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(definitionsBucket).Put([]byte(name), src)
	})
}

func (s *Storage) GetDefinition(ctx context.Context, name string) ([]byte, error) {
	s.logf("GetDefinition %s", name)
	var src []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(definitionsBucket).Get([]byte(name))
		if bs == nil {
			return &storage.NotFound{Name: name}
		}
		// Only valid during the transaction.
		src = append([]byte(nil), bs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// RemDefinition removes the definition and its run records.
func (s *Storage) RemDefinition(ctx context.Context, name string) error {
	s.logf("RemDefinition %s", name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(definitionsBucket).Delete([]byte(name)); err != nil {
			return err
		}
		runs := tx.Bucket(runsBucket)
		if runs.Bucket([]byte(name)) == nil {
			return nil
		}
		return runs.DeleteBucket([]byte(name))
	})
}

func (s *Storage) ListDefinitions(ctx context.Context) ([]string, error) {
	var acc []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(definitionsBucket).ForEach(func(k, v []byte) error {
			acc = append(acc, string(k))
			return nil
		})
	})
	return acc, err
}

// WriteRun assigns the record an id from the definition's bucket's
// sequence and stores the record as JSON.
func (s *Storage) WriteRun(ctx context.Context, r *storage.RunRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(runsBucket).CreateBucketIfNotExists([]byte(r.Definition))
		if err != nil {
			return err
		}
		n, err := b.NextSequence()
		if err != nil {
			return err
		}
		r.Id = storage.RunId(n)
		js, err := json.Marshal(r)
		if err != nil {
			return err
		}
		s.logf("WriteRun %s %s", r.Definition, js)
		return b.Put([]byte(r.Id), js)
	})
}

func (s *Storage) GetRuns(ctx context.Context, definition string) ([]*storage.RunRecord, error) {
	s.logf("GetRuns %s", definition)
	acc := make([]*storage.RunRecord, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(runsBucket).Bucket([]byte(definition))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for id, bs := c.First(); id != nil; id, bs = c.Next() {
			var r storage.RunRecord
			if err := json.Unmarshal(bs, &r); err != nil {
				return err
			}
			acc = append(acc, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logf("GetRuns %s found %d", definition, len(acc))
	return acc, nil
}
