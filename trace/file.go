package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/atomic"
)

// File is a trace file opened for reading. Files ending in .gz or .zst are
// decompressed on the fly.
type File struct {
	*Reader

	file    *os.File
	counter *countingReader
	closers []func() error
	size    int64
}

// Open opens the trace file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	tf := &File{
		file:    f,
		counter: &countingReader{r: f},
		size:    info.Size(),
	}

	var stream io.Reader = tf.counter

	switch filepath.Ext(path) {
	case ".gz":
		gz, err := gzip.NewReader(stream)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("trace %s: %w", path, err)
		}

		tf.closers = append(tf.closers, gz.Close)
		stream = gz
	case ".zst":
		dec, err := zstd.NewReader(stream)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("trace %s: %w", path, err)
		}

		tf.closers = append(tf.closers, func() error {
			dec.Close()
			return nil
		})
		stream = dec
	}

	tf.Reader = NewReader(stream)

	return tf, nil
}

// Size returns the size of the file on disk.
func (f *File) Size() int64 {
	return f.size
}

// BytesRead returns how many bytes of the file on disk have been consumed. It
// is safe to call from other goroutines.
func (f *File) BytesRead() int64 {
	return f.counter.n.Load()
}

// Close releases the file and any decompressor.
func (f *File) Close() error {
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil {
			f.file.Close()
			return err
		}
	}

	return f.file.Close()
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))

	return n, err
}
