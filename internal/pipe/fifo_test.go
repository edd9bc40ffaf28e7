package pipe

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-management-system/internal/testutil"
)

func TestCreateReplacesStaleFile(t *testing.T) {
	path := filepath.Join(testutil.PipeDir(t), "server")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	assert.False(t, IsFIFO(path))

	require.NoError(t, Create(path, ServerMode))
	assert.True(t, IsFIFO(path))

	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path), "removing a missing pipe is not an error")
	assert.False(t, IsFIFO(path))
}

func TestReaderAndWriterRendezvous(t *testing.T) {
	path := filepath.Join(testutil.PipeDir(t), "p")
	require.NoError(t, Create(path, ClientMode))

	got := make(chan []byte, 1)
	go func() {
		r, err := OpenRead(path)
		if err != nil {
			return
		}
		defer r.Close()
		b, _ := io.ReadAll(r)
		got <- b
	}()

	w, err := OpenWrite(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []byte("hello"), testutil.RequireReceive(t, got, 5*time.Second, "reader"))
}

func TestReadWriteOpenSupportsDeadlines(t *testing.T) {
	path := filepath.Join(testutil.PipeDir(t), "srv")
	require.NoError(t, Create(path, ServerMode))

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.SetReadDeadline(time.Now().Add(20*time.Millisecond)))
	_, err = f.Read(make([]byte, 1))
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func TestCreateFailsInMissingDirectory(t *testing.T) {
	err := Create(filepath.Join(testutil.PipeDir(t), "missing", "p"), ServerMode)
	require.Error(t, err)
}

func TestDialWithoutReader(t *testing.T) {
	path := filepath.Join(testutil.PipeDir(t), "nobody")
	require.NoError(t, Create(path, ServerMode))

	_, err := Dial(path)
	require.ErrorIs(t, err, ErrNoReader)

	r, err := OpenReadWrite(path)
	require.NoError(t, err)
	defer r.Close()

	w, err := Dial(path)
	require.NoError(t, err)
	defer w.Close()
	_, err = w.Write([]byte{'1'})
	require.NoError(t, err)

	b := make([]byte, 1)
	_, err = io.ReadFull(r, b)
	require.NoError(t, err)
	assert.Equal(t, byte('1'), b[0])
}
