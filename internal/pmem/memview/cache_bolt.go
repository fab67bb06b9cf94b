package memview

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

// BoltCache persists fetched chunks to a bbolt database, one bucket per
// device serial number, so a `dump`/`tracks`/`retrieve` invocation against
// the same physical device does not re-fetch chunks a previous invocation
// already read. It never writes to the device itself.
type BoltCache struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBoltCache opens (creating if needed) the bucket for serial inside the
// bbolt database at path.
func OpenBoltCache(path, serial string) (*BoltCache, error) {
	const op = "memview.OpenBoltCache"
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, gpserr.New(gpserr.Transport, op, err)
	}
	bucket := []byte(serial)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, gpserr.New(gpserr.Transport, op, err)
	}
	return &BoltCache{db: db, bucket: bucket}, nil
}

// Close releases the underlying bbolt database file.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

func chunkKey(chunk int64) []byte {
	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, uint64(chunk))
	return key
}

// Get implements Cache.
func (c *BoltCache) Get(chunk int64) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		if v := b.Get(chunkKey(chunk)); v != nil {
			data = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false
	}
	return data, true
}

// Put implements Cache.
func (c *BoltCache) Put(chunk int64, data []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", c.bucket)
		}
		return b.Put(chunkKey(chunk), data)
	})
}

// InvalidateRange implements Cache.
func (c *BoltCache) InvalidateRange(offset int64, length int) {
	first := alignDown(offset)
	last := alignDown(offset + int64(length) - 1)
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		for chunk := first; chunk <= last; chunk += ChunkSize {
			if err := b.Delete(chunkKey(chunk)); err != nil {
				return err
			}
		}
		return nil
	})
}
