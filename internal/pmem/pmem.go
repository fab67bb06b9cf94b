// Package pmem walks the device's on-flash PMEM structure: two top-level
// blocks (the device event log and the track log), each the head of a
// doubly-linked ring of fixed-size entry blocks, and exposes each ring as
// a flat logical byte stream for internal/samples to decode.
//
// The on-device byte layout is known only from a handful of annotated hex
// dumps (see original_source/gpspod/pmem.py, which is notes, not code): a
// four-byte "PMEM" marker inside each block header, a pair of absolute
// offset pointers, an entry count, and a last-written offset. The exact
// field widths and ordering below are this package's own consistent
// design built on those observed facts, not a byte-for-byte transcription
// of an implementation that was never retrieved.
package pmem

import (
	"encoding/binary"
	"fmt"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
	"github.com/ivorwanders-go/gpspod/internal/pmem/memview"
)

// Well-known absolute offsets of the two top-level PMEM blocks within the
// device's addressable region, taken from original_source/gpspod/pmem.py's
// annotated hex dump ("0x9e1c0 Always indicates the start of the internal
// log of events" and the header found at the start of the first GPS
// track's data).
const (
	LogBlockOffset   int64 = 0x9e1c0
	TrackBlockOffset int64 = 0xf4240
)

// EntryBlockSize is the fixed size of one entry block, header included.
const EntryBlockSize = 0x1000

const (
	entryHeaderSize = 16 // prev(4) + next(4) + firstEntry(2) + lastWritten(2) + magic(4)
	entryBodySize   = EntryBlockSize - entryHeaderSize
)

var magic = [4]byte{'P', 'M', 'E', 'M'}

// maxBlocksInRegion bounds the block-visit set: the region can hold at
// most this many EntryBlockSize-sized blocks.
const maxBlocksInRegion = int(memview.RegionSize / EntryBlockSize)

// topLevelHeader describes one of the two top-level blocks.
type topLevelHeader struct {
	FirstEntryBlockOffset   uint32
	LastEntryBlockOffset    uint32
	CurrentWriteBlockOffset uint32
	EntryCount              uint32
}

const topLevelHeaderSize = 16

func readTopLevelHeader(op string, r memview.MemoryReader, offset int64) (topLevelHeader, error) {
	raw, err := r.ReadAt(offset, topLevelHeaderSize)
	if err != nil {
		return topLevelHeader{}, err
	}
	return topLevelHeader{
		FirstEntryBlockOffset:   binary.LittleEndian.Uint32(raw[0:4]),
		LastEntryBlockOffset:    binary.LittleEndian.Uint32(raw[4:8]),
		CurrentWriteBlockOffset: binary.LittleEndian.Uint32(raw[8:12]),
		EntryCount:              binary.LittleEndian.Uint32(raw[12:16]),
	}, nil
}

// entryBlockHeader is the fixed-size header at the start of every entry
// block.
type entryBlockHeader struct {
	PrevOffset        uint32
	NextOffset        uint32
	FirstEntryOffset  uint16 // within the block's body
	LastWrittenOffset uint16 // within the block's body
}

func readEntryBlockHeader(op string, r memview.MemoryReader, blockOffset int64) (entryBlockHeader, error) {
	raw, err := r.ReadAt(blockOffset, entryHeaderSize)
	if err != nil {
		return entryBlockHeader{}, err
	}
	var got [4]byte
	copy(got[:], raw[12:16])
	if got != magic {
		return entryBlockHeader{}, gpserr.AtOffset(op, blockOffset, fmt.Errorf("bad block magic %q at offset 0x%X", got, blockOffset))
	}
	h := entryBlockHeader{
		PrevOffset:        binary.LittleEndian.Uint32(raw[0:4]),
		NextOffset:        binary.LittleEndian.Uint32(raw[4:8]),
		FirstEntryOffset:  binary.LittleEndian.Uint16(raw[8:10]),
		LastWrittenOffset: binary.LittleEndian.Uint16(raw[10:12]),
	}
	if int(h.FirstEntryOffset) > entryBodySize || int(h.LastWrittenOffset) > entryBodySize || h.FirstEntryOffset > h.LastWrittenOffset {
		return entryBlockHeader{}, gpserr.AtOffset(op, blockOffset, fmt.Errorf("entry block bounds out of range: first=%d last=%d body=%d", h.FirstEntryOffset, h.LastWrittenOffset, entryBodySize))
	}
	return h, nil
}

// blockVisitSet is a compact bitset indexed by block number
// (blockOffset/EntryBlockSize), guarding the chain walk against cycles
// caused by corrupt next-pointers.
type blockVisitSet struct {
	bits []uint64
}

func newBlockVisitSet() *blockVisitSet {
	return &blockVisitSet{bits: make([]uint64, (maxBlocksInRegion+63)/64)}
}

func (s *blockVisitSet) visit(blockOffset int64) (alreadyVisited bool) {
	idx := blockOffset / EntryBlockSize
	if idx < 0 || int(idx) >= maxBlocksInRegion {
		return true
	}
	word, bit := idx/64, uint(idx%64)
	if s.bits[word]&(1<<bit) != 0 {
		return true
	}
	s.bits[word] |= 1 << bit
	return false
}

// Chain walks one top-level block's entry-block ring and yields the
// concatenation of every block's valid body bytes, oldest to newest.
type Chain struct {
	reader    memview.MemoryReader
	topOffset int64
}

// NewChain returns a Chain rooted at one of LogBlockOffset/TrackBlockOffset.
func NewChain(reader memview.MemoryReader, topOffset int64) *Chain {
	return &Chain{reader: reader, topOffset: topOffset}
}

// Bytes walks the chain and returns the concatenated logical byte stream.
// If the chain is corrupt partway through, the bytes decoded up to that
// point are still returned alongside a non-nil *gpserr.Error (Kind
// Decode) describing where the walk stopped; a caller should log that
// error as a warning rather than discard the data. data is nil when no
// body bytes were read before the failure (for example when the top-level
// header or the first entry block could not be read).
func (c *Chain) Bytes() ([]byte, error) {
	const op = "pmem.Chain.Bytes"
	top, err := readTopLevelHeader(op, c.reader, c.topOffset)
	if err != nil {
		return nil, err
	}

	visited := newBlockVisitSet()
	var out []byte
	blockOffset := int64(top.FirstEntryBlockOffset)

	for i := uint32(0); i < top.EntryCount+1; i++ {
		if visited.visit(blockOffset) {
			return out, gpserr.AtOffset(op, blockOffset, fmt.Errorf("cycle detected in entry block chain"))
		}
		header, err := readEntryBlockHeader(op, c.reader, blockOffset)
		if err != nil {
			return out, err
		}
		bodyStart := blockOffset + entryHeaderSize + int64(header.FirstEntryOffset)
		bodyLen := int(header.LastWrittenOffset - header.FirstEntryOffset)
		if bodyLen > 0 {
			body, err := c.reader.ReadAt(bodyStart, bodyLen)
			if err != nil {
				return out, err
			}
			out = append(out, body...)
		}
		if blockOffset == int64(top.LastEntryBlockOffset) {
			return out, nil
		}
		blockOffset = int64(header.NextOffset)
	}
	return out, gpserr.AtOffset(op, blockOffset, fmt.Errorf("entry block chain did not terminate within %d blocks", top.EntryCount+1))
}
