package codec

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"
	"gonum.org/v1/gonum/mat"
)

func TestCheckExt(t *testing.T) {
	assert.NoError(t, CheckExt("data/train"+Ext))
	err := CheckExt("data/train.pkl")
	assert.True(t, errors.Is(err, ErrBadExtension))
}

func TestWriteReadFile_DenseSurvivesCompression(t *testing.T) {
	// GIVEN a matrix written to a compressed file
	path := filepath.Join(t.TempDir(), "nested", "m"+Ext)
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, WriteFile(path, func(w *msgp.Writer) error { return WriteDense(w, m) }))

	// WHEN read back
	var got *mat.Dense
	err := ReadFile(path, func(r *msgp.Reader) error {
		var err error
		got, err = ReadDense(r)
		return err
	})

	// THEN the values match
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestWriteFile_WrongExtension_NothingWritten(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "m.json"), func(*msgp.Writer) error { return nil })
	assert.True(t, errors.Is(err, ErrBadExtension))
}

func TestReadFile_Missing_ReturnsError(t *testing.T) {
	err := ReadFile(filepath.Join(t.TempDir(), "missing"+Ext), func(*msgp.Reader) error { return nil })
	assert.Error(t, err)
}
