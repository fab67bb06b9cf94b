// Package memview presents the device's flat memory region as a
// byte-addressable, randomly readable view, fetching ranges lazily through
// the command layer and caching what it fetches — in-process always, and
// optionally in a bbolt database keyed by device serial number so repeat
// invocations against the same physical device skip re-reading unchanged
// regions.
package memview

import (
	"fmt"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

// RegionSize is the size of the device's addressable memory region.
const RegionSize int64 = 0x3C0000

// ChunkSize is the device's preferred read granularity; all fetches are
// aligned to it.
const ChunkSize = 512

// MaxFetchBytes bounds how many previously-uncached bytes a single Read
// call will fetch, so one call can't block for an unbounded amount of
// time on a very large range. Callers that need more (e.g. `dump`) loop
// over the region themselves.
const MaxFetchBytes = 32 * 1024

// Reader is the command-layer primitive memview needs: a bounded read at
// an absolute device offset. github.com/ivorwanders-go/gpspod/internal/gpscmd.Client
// satisfies this directly.
type Reader interface {
	ReadMemory(position uint32, length uint16) ([]byte, error)
}

// MemoryReader is the read interface the PMEM and sample decoders consume;
// both View and the offline file-backed reader satisfy it.
type MemoryReader interface {
	ReadAt(offset int64, length int) ([]byte, error)
	Size() int64
}

// Cache is the persistence primitive backing a View across process
// restarts. A bbolt-backed implementation lives in cache_bolt.go.
type Cache interface {
	Get(chunk int64) ([]byte, bool)
	Put(chunk int64, data []byte) error
	InvalidateRange(offset int64, length int)
}

// memCache is an in-process, non-persistent Cache.
type memCache struct {
	chunks map[int64][]byte
}

func newMemCache() *memCache { return &memCache{chunks: make(map[int64][]byte)} }

func (c *memCache) Get(chunk int64) ([]byte, bool) {
	data, ok := c.chunks[chunk]
	return data, ok
}

func (c *memCache) Put(chunk int64, data []byte) error {
	c.chunks[chunk] = data
	return nil
}

func (c *memCache) InvalidateRange(offset int64, length int) {
	first := alignDown(offset)
	last := alignDown(offset + int64(length) - 1)
	for chunk := first; chunk <= last; chunk += ChunkSize {
		delete(c.chunks, chunk)
	}
}

// layeredCache checks an in-process cache before falling through to a
// slower persistent one, populating the in-process layer on a persistent
// hit.
type layeredCache struct {
	mem  *memCache
	next Cache
}

// NewLayeredCache wraps persistent in an in-process cache, so a chunk
// already read this session never touches disk twice.
func NewLayeredCache(persistent Cache) Cache {
	return &layeredCache{mem: newMemCache(), next: persistent}
}

func (c *layeredCache) Get(chunk int64) ([]byte, bool) {
	if data, ok := c.mem.Get(chunk); ok {
		return data, true
	}
	data, ok := c.next.Get(chunk)
	if ok {
		c.mem.Put(chunk, data)
	}
	return data, ok
}

func (c *layeredCache) Put(chunk int64, data []byte) error {
	c.mem.Put(chunk, data)
	return c.next.Put(chunk, data)
}

func (c *layeredCache) InvalidateRange(offset int64, length int) {
	c.mem.InvalidateRange(offset, length)
	c.next.InvalidateRange(offset, length)
}

// View is a MemoryReader backed by live device reads through Reader,
// cached in-process and optionally persisted via Cache.
type View struct {
	reader Reader
	cache  Cache
}

// New wraps reader in a View with only the in-process cache.
func New(reader Reader) *View {
	return &View{reader: reader, cache: newMemCache()}
}

// NewWithCache wraps reader in a View layered on top of an additional
// persistent cache (checked before falling back to reader).
func NewWithCache(reader Reader, cache Cache) *View {
	return &View{reader: reader, cache: NewLayeredCache(cache)}
}

func alignDown(offset int64) int64 {
	return offset - offset%ChunkSize
}

// Size reports the fixed region size.
func (v *View) Size() int64 { return RegionSize }

// ReadAt returns length bytes starting at offset, fetching any chunks not
// already cached. Contiguous runs of missing chunks are coalesced into a
// single ReadMemory command instead of one per chunk. Reading past the
// region's end, or fetching more than MaxFetchBytes worth of new data in
// one call, is a UsageError.
func (v *View) ReadAt(offset int64, length int) ([]byte, error) {
	const op = "memview.View.ReadAt"
	if offset < 0 || length < 0 || offset+int64(length) > RegionSize {
		return nil, gpserr.New(gpserr.Usage, op, fmt.Errorf("range [%d,%d) exceeds region size %d", offset, offset+int64(length), RegionSize))
	}
	if length == 0 {
		return nil, nil
	}

	first := alignDown(offset)
	last := alignDown(offset + int64(length) - 1)

	var missing []int64
	fetched := 0
	for chunk := first; chunk <= last; chunk += ChunkSize {
		if _, ok := v.cache.Get(chunk); !ok {
			missing = append(missing, chunk)
			fetched += ChunkSize
		}
	}
	if fetched > MaxFetchBytes {
		return nil, gpserr.New(gpserr.Usage, op, fmt.Errorf("range requires fetching more than %d bytes in one call", MaxFetchBytes))
	}

	for i := 0; i < len(missing); {
		j := i + 1
		for j < len(missing) && missing[j] == missing[j-1]+ChunkSize {
			j++
		}
		runStart := missing[i]
		runLen := int64(j-i) * ChunkSize
		if runStart+runLen > RegionSize {
			runLen = RegionSize - runStart
		}
		raw, err := v.reader.ReadMemory(uint32(runStart), uint16(runLen))
		if err != nil {
			return nil, err
		}
		for chunk := runStart; chunk < runStart+runLen; chunk += ChunkSize {
			chunkLen := ChunkSize
			if chunk+int64(chunkLen) > runStart+runLen {
				chunkLen = int(runStart + runLen - chunk)
			}
			rel := chunk - runStart
			if err := v.cache.Put(chunk, raw[rel:rel+int64(chunkLen)]); err != nil {
				return nil, gpserr.New(gpserr.Transport, op, err)
			}
		}
		i = j
	}

	out := make([]byte, 0, length)
	for chunk := first; chunk <= last; chunk += ChunkSize {
		data, _ := v.cache.Get(chunk)
		out = append(out, data...)
	}

	relStart := offset - first
	return out[relStart : relStart+int64(length)], nil
}

// Invalidate drops any cached chunks overlapping [offset, offset+length),
// called after a settings write that touches the same underlying region.
func (v *View) Invalidate(offset int64, length int) {
	v.cache.InvalidateRange(offset, length)
}
