// Package codec frames dataset and checkpoint files: a MessagePack stream
// compressed with LZ4, stored under the ".msgp.lz4" extension.
package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/tinylib/msgp/msgp"
	"gonum.org/v1/gonum/mat"
)

// Ext is the file extension of every file this package reads or writes.
const Ext = ".msgp.lz4"

// ErrBadExtension is returned for paths that do not end in Ext.
var ErrBadExtension = errors.New("unsupported file extension")

// CheckExt verifies that path carries the expected extension.
func CheckExt(path string) error {
	if !strings.HasSuffix(path, Ext) {
		return fmt.Errorf("%s: %w (want %s)", path, ErrBadExtension, Ext)
	}
	return nil
}

// WriteFile creates path (and its directory) and streams encode's output
// through LZ4 into it.
func WriteFile(path string, encode func(w *msgp.Writer) error) error {
	if err := CheckExt(path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	zw := lz4.NewWriter(f)
	if err := zw.Apply(
		lz4.BlockChecksumOption(true),
		lz4.ChecksumOption(true),
		lz4.CompressionLevelOption(lz4.Level9),
	); err != nil {
		return fmt.Errorf("configuring lz4 writer: %w", err)
	}
	w := msgp.NewWriter(zw)
	if err := encode(w); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing lz4 stream for %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile opens path and hands a MessagePack reader over the decompressed
// stream to decode.
func ReadFile(path string, decode func(r *msgp.Reader) error) error {
	if err := CheckExt(path); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	zr := lz4.NewReader(f)
	if err := decode(msgp.NewReader(zr)); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// WriteDense encodes a matrix as [rows, cols, data...].
func WriteDense(w *msgp.Writer, m *mat.Dense) error {
	r, c := m.Dims()
	if err := w.WriteArrayHeader(3); err != nil {
		return err
	}
	if err := w.WriteInt(r); err != nil {
		return err
	}
	if err := w.WriteInt(c); err != nil {
		return err
	}
	return WriteFloats(w, mat.DenseCopyOf(m).RawMatrix().Data)
}

// ReadDense decodes a matrix written by WriteDense.
func ReadDense(r *msgp.Reader) (*mat.Dense, error) {
	n, err := r.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	if n != 3 {
		return nil, fmt.Errorf("matrix record has %d fields, want 3", n)
	}
	rows, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	cols, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	data, err := ReadFloats(r)
	if err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("matrix record %dx%d carries %d values", rows, cols, len(data))
	}
	return mat.NewDense(rows, cols, data), nil
}

// WriteFloats encodes a float64 slice as a MessagePack array.
func WriteFloats(w *msgp.Writer, xs []float64) error {
	if err := w.WriteArrayHeader(uint32(len(xs))); err != nil {
		return err
	}
	for _, x := range xs {
		if err := w.WriteFloat64(x); err != nil {
			return err
		}
	}
	return nil
}

// ReadFloats decodes a MessagePack array of float64.
func ReadFloats(r *msgp.Reader) ([]float64, error) {
	n, err := r.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	xs := make([]float64, n)
	for i := range xs {
		if xs[i], err = r.ReadFloat64(); err != nil {
			return nil, err
		}
	}
	return xs, nil
}
