package classifier

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeHandle struct {
	path   string
	closed bool
}

func (f *fakeHandle) DetectMultiScaleWithParams(img gocv.Mat, scale float64, minNeighbors, flags int, minSize, maxSize image.Point) []image.Rectangle {
	return nil
}

func (f *fakeHandle) Close() error {
	f.closed = true
	return nil
}

type fakeLoader struct {
	loaded []*fakeHandle
	fail   map[string]bool
}

func (l *fakeLoader) load(path string) (Handle, error) {
	if l.fail[path] {
		return nil, errors.New("parse error")
	}
	h := &fakeHandle{path: path}
	l.loaded = append(l.loaded, h)
	return h, nil
}

func TestStore_SelectIsMutuallyExclusive(t *testing.T) {
	loader := &fakeLoader{}
	store := NewStore("haar.xml", "lbp.xml", loader.load)

	require.NoError(t, store.Select(Haar))
	require.True(t, store.IsSelected(Haar))
	require.False(t, store.IsSelected(LBP))

	require.NoError(t, store.Select(LBP))
	require.True(t, store.IsSelected(LBP))
	require.False(t, store.IsSelected(Haar))

	require.Len(t, loader.loaded, 2)
	require.True(t, loader.loaded[0].closed, "previous handle must be discarded")
	require.False(t, loader.loaded[1].closed)
	require.Same(t, loader.loaded[1], store.Active())
}

func TestStore_FailedSelectLeavesNothingSelected(t *testing.T) {
	loader := &fakeLoader{fail: map[string]bool{"lbp.xml": true}}
	store := NewStore("haar.xml", "lbp.xml", loader.load)

	require.NoError(t, store.Select(Haar))

	err := store.Select(LBP)
	require.ErrorIs(t, err, ErrModelLoad)
	require.Nil(t, store.Active())
	require.Equal(t, None, store.Selected())
	require.True(t, loader.loaded[0].closed)
}

func TestStore_UnknownVariant(t *testing.T) {
	store := NewStore("haar.xml", "lbp.xml", (&fakeLoader{}).load)
	require.Error(t, store.Select(Variant("yolo")))
	require.Equal(t, None, store.Selected())
}

func TestStore_Close(t *testing.T) {
	loader := &fakeLoader{}
	store := NewStore("haar.xml", "lbp.xml", loader.load)
	require.NoError(t, store.Select(Haar))

	store.Close()
	store.Close()

	require.Nil(t, store.Active())
	require.True(t, loader.loaded[0].closed)
}

func TestLoadCascade_MissingFile(t *testing.T) {
	_, err := LoadCascade(filepath.Join(t.TempDir(), "missing.xml"))
	require.ErrorIs(t, err, ErrModelLoad)
}

func TestLoadCascade_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xml")
	require.NoError(t, os.WriteFile(path, []byte("<opencv_storage></opencv_storage>"), 0644))

	_, err := LoadCascade(path)
	require.ErrorIs(t, err, ErrModelLoad)
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("lbp")
	require.NoError(t, err)
	require.Equal(t, LBP, v)

	_, err = ParseVariant("dnn")
	require.Error(t, err)
}
