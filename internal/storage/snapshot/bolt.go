package snapshot

import (
	"fmt"
	"os"
	"time"

	"github.com/boltdb/bolt"

	"github.com/yndnr/minidb-go/internal/core/domain"
)

var recordsBucket = []byte("records")

const boltOpenTimeout = time.Second

// boltCodec stores the image as a boltdb file.
type boltCodec struct{}

func (boltCodec) write(path string, records []domain.Record) (*Info, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("bolt open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(recordsBucket)
		if err != nil {
			return err
		}
		for _, r := range records {
			if err := b.Put([]byte(r.Key), []byte(r.Value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt write: %w", err)
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("bolt close: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	return &Info{Size: st.Size(), CreatedAt: time.Now()}, nil
}

func (boltCodec) read(path string) ([]domain.Record, *Info, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltOpenTimeout, ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrImageCorrupt, err)
	}
	defer db.Close()

	var records []domain.Record
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		if b == nil {
			return corrupt("bolt image has no %s bucket", recordsBucket)
		}
		return b.ForEach(func(k, v []byte) error {
			if v == nil {
				return corrupt("nested bucket %q in records", k)
			}
			key, value := string(k), string(v)
			if !domain.ValidToken(key) || !domain.ValidToken(value) {
				return corrupt("record %q is not a valid key/value pair", key)
			}
			records = append(records, domain.Record{Key: key, Value: value})
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	var mtime time.Time
	if st, err := os.Stat(path); err == nil {
		mtime = st.ModTime()
	}
	return records, &Info{CreatedAt: mtime}, nil
}
