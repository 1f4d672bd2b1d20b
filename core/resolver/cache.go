package resolver

import (
	"errors"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/siherrmann/arkg/helper"
)

const cacheKeyPrefix = "lookup:"

// Cache is a directory backed store of lookup responses.
// Entries expire after their TTL. Concurrent writers of the same key are
// allowed, the last one wins.
type Cache struct {
	db *badger.DB
}

// OpenCache opens the cache in directory and creates it if needed
func OpenCache(directory string) (*Cache, error) {
	err := os.MkdirAll(directory, 0750)
	if err != nil {
		return nil, helper.NewError("create cache directory", err)
	}

	opts := badger.DefaultOptions(directory)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, helper.NewError("open cache", err)
	}

	return &Cache{db: db}, nil
}

// Get returns the cached body of key. The bool is false on a miss.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var body []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKeyPrefix + key))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, helper.NewError("read cache", err)
	}
	return body, true, nil
}

// Set stores body under key for ttl. A ttl of zero never expires.
func (c *Cache) Set(key string, body []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(cacheKeyPrefix+key), body)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return helper.NewError("write cache", err)
	}
	return nil
}

// Delete removes key, a missing key is not an error
func (c *Cache) Delete(key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(cacheKeyPrefix + key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return helper.NewError("delete cache entry", err)
	}
	return nil
}

// Close flushes and closes the cache
func (c *Cache) Close() error {
	return c.db.Close()
}
