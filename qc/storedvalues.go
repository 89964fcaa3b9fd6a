package qc

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

var valuesBucket = []byte("storedvalues")

// NotFound is returned by Read when a key has no document.
type NotFound struct {
	Key string
}

func (e *NotFound) Error() string {
	return "no stored value for key \"" + e.Key + "\""
}

// StoredValues persists QC documents by key.
type StoredValues struct {
	filename string
	db       *bolt.DB
}

// NewStoredValues opens (or creates) a store backed by the given
// file.
func NewStoredValues(filename string) (*StoredValues, error) {
	opts := &bolt.Options{
		Timeout: time.Second,
	}
	db, err := bolt.Open(filename, 0644, opts)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(valuesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &StoredValues{
		filename: filename,
		db:       db,
	}, nil
}

func (s *StoredValues) Close(ctx context.Context) error {
	return s.db.Close()
}

// Put writes one document.
func (s *StoredValues) Put(ctx context.Context, kv *KV) error {
	js, err := json.Marshal(kv.Doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(valuesBucket).Put([]byte(kv.Key), js)
	})
}

// Load writes a batch of parsed documents.
func (s *StoredValues) Load(ctx context.Context, kvs []KV) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(valuesBucket)
		for _, kv := range kvs {
			js, err := json.Marshal(kv.Doc)
			if err != nil {
				return err
			}
			if err = b.Put([]byte(kv.Key), js); err != nil {
				return err
			}
		}
		return nil
	})
}

// Read returns the document stored at the given key.
func (s *StoredValues) Read(ctx context.Context, key string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(valuesBucket).Get([]byte(key))
		if bs == nil {
			return &NotFound{Key: key}
		}
		return json.Unmarshal(bs, &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
