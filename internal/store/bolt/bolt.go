// Package bolt provides a BBolt-backed option store, an alternative home
// for the session table when the record database should stay read-mostly.
package bolt

import (
	"context"
	"fmt"

	"github.com/jfmyers9/playlistlog/internal/store"
	"go.etcd.io/bbolt"
)

var optionsBucket = []byte("options")

// Options implements the session option store on top of a BBolt database.
type Options struct {
	db *bbolt.DB
}

// Open opens a BBolt database at the given path.
func Open(path string, options *bbolt.Options) (*Options, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(optionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating options bucket: %w", err)
	}
	return &Options{db: db}, nil
}

// Close closes the underlying BBolt database.
func (o *Options) Close() error {
	return o.db.Close()
}

func (o *Options) GetOption(_ context.Context, name string) ([]byte, error) {
	var value []byte
	err := o.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(optionsBucket).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("option %s: %w", name, store.ErrNotFound)
		}
		// bbolt values are only valid for the life of the transaction.
		value = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (o *Options) SetOption(_ context.Context, name string, value []byte) error {
	return o.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(optionsBucket).Put([]byte(name), value)
	})
}

func (o *Options) DeleteOption(_ context.Context, name string) error {
	return o.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(optionsBucket).Delete([]byte(name))
	})
}
