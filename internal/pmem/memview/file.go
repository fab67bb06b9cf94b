package memview

import (
	"fmt"
	"io"
	"os"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

// FileView is a MemoryReader over a previously dumped memory image
// (`gpspod dump <path>`), used by every subcommand's `--fs <path>` flag to
// operate offline. Unlike View it performs no device I/O and needs no
// cache — the whole file is the cache.
type FileView struct {
	f    *os.File
	size int64
}

// OpenFileView opens path as a memory-region dump. The file must be
// exactly RegionSize bytes.
func OpenFileView(path string) (*FileView, error) {
	const op = "memview.OpenFileView"
	f, err := os.Open(path)
	if err != nil {
		return nil, gpserr.New(gpserr.Usage, op, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, gpserr.New(gpserr.Usage, op, err)
	}
	if info.Size() != RegionSize {
		f.Close()
		return nil, gpserr.New(gpserr.Usage, op, fmt.Errorf("dump file is %d bytes, want exactly %d", info.Size(), RegionSize))
	}
	return &FileView{f: f, size: info.Size()}, nil
}

// Close releases the underlying file handle.
func (v *FileView) Close() error { return v.f.Close() }

// Size implements MemoryReader.
func (v *FileView) Size() int64 { return v.size }

// ReadAt implements MemoryReader.
func (v *FileView) ReadAt(offset int64, length int) ([]byte, error) {
	const op = "memview.FileView.ReadAt"
	if offset < 0 || length < 0 || offset+int64(length) > v.size {
		return nil, gpserr.New(gpserr.Usage, op, fmt.Errorf("range [%d,%d) exceeds region size %d", offset, offset+int64(length), v.size))
	}
	buf := make([]byte, length)
	if _, err := v.f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, gpserr.New(gpserr.Transport, op, err)
	}
	return buf, nil
}

// Dump copies the whole of src (src.Size() bytes, from offset 0) into an
// output file at path, used by `gpspod dump`. It fetches in MaxFetchBytes-sized
// steps so a live View's per-call cap is respected.
func Dump(src MemoryReader, path string) error {
	const op = "memview.Dump"
	out, err := os.Create(path)
	if err != nil {
		return gpserr.New(gpserr.Usage, op, err)
	}
	defer out.Close()

	size := src.Size()
	for offset := int64(0); offset < size; offset += MaxFetchBytes {
		length := int64(MaxFetchBytes)
		if offset+length > size {
			length = size - offset
		}
		data, err := src.ReadAt(offset, int(length))
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return gpserr.New(gpserr.Usage, op, err)
		}
	}
	return nil
}
