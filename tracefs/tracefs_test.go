package tracefs

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	httpvfs "github.com/htsio/go-httpvfs"
)

func recordedTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return recorder, tp
}

func spanNames(recorder *tracetest.SpanRecorder) []string {
	names := []string{}
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}

	return names
}

func TestTraceFSMapFS(t *testing.T) {
	recorder, tp := recordedTracer(t)

	base := fstest.MapFS{
		"hello.txt": &fstest.MapFile{Data: []byte("hello world"), Mode: 0o444},
	}

	fsys, err := New(context.Background(), base, WithTracerProvider(tp))
	require.NoError(t, err)

	b, err := fs.ReadFile(fsys, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(b))

	fi, err := fs.Stat(fsys, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(11), fi.Size())

	f, err := fsys.Open("hello.txt")
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	names := spanNames(recorder)
	assert.Contains(t, names, "fs.ReadFile")
	assert.Contains(t, names, "fs.Stat")
	assert.Contains(t, names, "fs.Open")
	assert.Contains(t, names, "file.Read")
	assert.Contains(t, names, "file.Close")
}

func TestTraceFSHTTP(t *testing.T) {
	recorder, tp := recordedTracer(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "data.txt", time.Time{}, strings.NewReader("0123456789"))
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	base, err := httpvfs.New(u)
	require.NoError(t, err)

	fsys, err := New(context.Background(), base, WithTracerProvider(tp))
	require.NoError(t, err)

	f, err := fsys.Open("data.txt")
	require.NoError(t, err)

	t.Cleanup(func() { _ = f.Close() })

	// HTTP files keep their seek and random-access capabilities when
	// wrapped
	seeker, ok := f.(io.Seeker)
	require.True(t, ok)

	ra, ok := f.(io.ReaderAt)
	require.True(t, ok)

	pos, err := seeker.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	buf := make([]byte, 3)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf))

	n, err := ra.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "012", string(buf))

	names := spanNames(recorder)
	assert.Contains(t, names, "fs.Open")
	assert.Contains(t, names, "file.Seek")
	assert.Contains(t, names, "file.Read")
	assert.Contains(t, names, "file.ReadAt")
}
