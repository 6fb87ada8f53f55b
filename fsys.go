package httpvfs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/htsio/go-httpvfs/internal"
	"github.com/htsio/go-httpvfs/retry"
)

type httpFS struct {
	ctx      context.Context
	base     *url.URL
	client   *http.Client
	headers  http.Header
	settings Settings
}

// New provides a filesystem (an fs.FS) for the HTTP (or HTTPS) endpoint
// rooted at u. This filesystem is suitable for use with the 'http' or
// 'https' URL schemes. Files are backed by seekable byte channels, so reads
// are made with GET requests (ranged when seeking), while stat calls are
// made with the HEAD method (with a fallback to GET). All requests run
// under the provider-wide retry settings for u's scheme.
//
// A context can be given by using WithContextFS.
// HTTP Headers can be provided by using WithHeaderFS.
func New(u *url.URL) (fs.FS, error) {
	if u == nil {
		return nil, invalidArgError("nil URL")
	}

	provider, err := ForScheme(u.Scheme)
	if err != nil {
		return nil, err
	}

	settings := provider.Settings()

	return &httpFS{
		ctx:      context.Background(),
		base:     u,
		client:   newHTTPClient(settings),
		headers:  http.Header{},
		settings: settings,
	}, nil
}

// FS is used to register this filesystem with an FSMux
//
//nolint:gochecknoglobals
var FS = FSProviderFunc(New, "http", "https")

var (
	_ fs.FS                     = (*httpFS)(nil)
	_ fs.ReadFileFS             = (*httpFS)(nil)
	_ fs.SubFS                  = (*httpFS)(nil)
	_ internal.WithContexter    = (*httpFS)(nil)
	_ internal.WithHeaderer     = (*httpFS)(nil)
	_ internal.WithHTTPClienter = (*httpFS)(nil)
)

func (f httpFS) URL() string {
	return f.base.String()
}

func (f *httpFS) WithContext(ctx context.Context) fs.FS {
	if ctx == nil {
		return f
	}

	fsys := *f
	fsys.ctx = ctx

	return &fsys
}

func (f *httpFS) WithHeader(headers http.Header) fs.FS {
	if headers == nil {
		return f
	}

	fsys := *f
	if len(fsys.headers) == 0 {
		fsys.headers = headers
	} else {
		for k, vs := range headers {
			for _, v := range vs {
				fsys.headers.Add(k, v)
			}
		}
	}

	return &fsys
}

func (f *httpFS) WithHTTPClient(client *http.Client) fs.FS {
	if client == nil {
		return f
	}

	fsys := *f
	fsys.client = client

	return &fsys
}

// settingsWithHeaders merges the filesystem-level headers into the settings
// handed to a channel.
func (f *httpFS) settingsWithHeaders() Settings {
	if len(f.headers) == 0 {
		return f.settings
	}

	s := f.settings

	merged := http.Header{}
	for k, vs := range s.Headers {
		merged[k] = vs
	}

	for k, vs := range f.headers {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}

	s.Headers = merged

	return s
}

func (f httpFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{
			Op:   "open",
			Path: name,
			Err:  fs.ErrInvalid,
		}
	}

	u, err := internal.SubURL(f.base, name)
	if err != nil {
		return nil, err
	}

	handler, err := retry.New(f.settings.Retry, u)
	if err != nil {
		return nil, err
	}

	return &httpFile{
		ctx:      f.ctx,
		u:        u,
		client:   f.client,
		handler:  handler,
		name:     name,
		settings: f.settingsWithHeaders(),
	}, nil
}

func (f httpFS) ReadFile(name string) ([]byte, error) {
	opened, err := f.Open(name)
	if err != nil {
		return nil, err
	}
	defer opened.Close()

	b, err := io.ReadAll(opened)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (f httpFS) Sub(name string) (fs.FS, error) {
	fsys := f

	u, err := internal.SubURL(f.base, name)
	if err != nil {
		return nil, err
	}

	// keep a trailing separator so names resolve under the new base rather
	// than replacing its last segment
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"

		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}

	fsys.base = u

	return &fsys, nil
}

type httpFile struct {
	ctx      context.Context
	u        *url.URL
	client   *http.Client
	handler  *retry.Handler
	settings Settings
	name     string

	mu sync.Mutex
	ch *SeekableByteChannel
	fi fs.FileInfo
}

var (
	_ fs.File     = (*httpFile)(nil)
	_ io.Seeker   = (*httpFile)(nil)
	_ io.ReaderAt = (*httpFile)(nil)
)

// channel lazily opens the backing byte channel at offset zero. Callers must
// hold the lock.
func (f *httpFile) channel() (*SeekableByteChannel, error) {
	if f.ch != nil {
		return f.ch, nil
	}

	ch, err := newChannelWithClient(f.ctx, f.u, f.settings, f.client, 0)
	if err != nil {
		return nil, err
	}

	f.ch = ch

	return ch, nil
}

func (f *httpFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch, err := f.channel()
	if err != nil {
		return 0, err
	}

	return ch.Read(p)
}

func (f *httpFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch, err := f.channel()
	if err != nil {
		return 0, err
	}

	return ch.Seek(offset, whence)
}

// ReadAt reads len(p) bytes at offset off, restoring the channel position
// afterwards so interleaved sequential reads are unaffected.
func (f *httpFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch, err := f.channel()
	if err != nil {
		return 0, err
	}

	// an offset at or past the end is end-of-file, not a range error
	size, err := ch.Size()
	if err != nil {
		return 0, err
	}

	if off >= size {
		return 0, io.EOF
	}

	prev, err := ch.Position()
	if err != nil {
		return 0, err
	}

	if err := ch.SetPosition(off); err != nil {
		return 0, err
	}

	total := 0
	for total < len(p) {
		n, err := ch.Read(p[total:])
		total += n

		if err == io.EOF {
			if total == len(p) {
				break
			}

			_ = ch.SetPosition(prev)

			return total, io.EOF
		}

		if err != nil {
			_ = ch.SetPosition(prev)

			return total, err
		}
	}

	if err := ch.SetPosition(prev); err != nil {
		return total, err
	}

	return total, nil
}

func (f *httpFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ch == nil {
		return nil
	}

	ch := f.ch
	f.ch = nil

	return ch.Close()
}

// request issues a bodyless probe with the given method under retry and
// caches the resulting file info. The response body must be closed by the
// caller.
func (f *httpFile) request(method string) (io.ReadCloser, error) {
	var body io.ReadCloser

	err := f.handler.RunWithRetries(f.ctx, func() error {
		req, err := http.NewRequestWithContext(f.ctx, method, f.u.String(), nil)
		if err != nil {
			return err
		}

		applyHeaders(req, f.settings.Headers)

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}

		modTime := time.Time{}
		if mod := resp.Header.Get("Last-Modified"); mod != "" {
			// best-effort - if it can't be parsed, just ignore it...
			modTime, _ = http.ParseTime(mod)
		}

		f.fi = internal.FileInfo(f.name, resp.ContentLength, 0o444, modTime, resp.Header.Get("Content-Type"))

		if resp.StatusCode == 0 || resp.StatusCode >= 400 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			return statError(f.name, resp.StatusCode, f.u)
		}

		body = resp.Body

		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// statError maps a failed stat probe to the filesystem error conventions.
func statError(name string, code int, u *url.URL) error {
	if code == http.StatusNotFound {
		return &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}

	return &UnexpectedResponseError{Code: code, URL: u.Redacted()}
}

func (f *httpFile) Stat() (fs.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, err := f.request(http.MethodHead)
	if err == nil {
		defer body.Close()

		return f.fi, nil
	}

	var respErr *UnexpectedResponseError
	if !errors.As(err, &respErr) || respErr.Code != http.StatusMethodNotAllowed {
		return nil, err
	}

	// fall back to GET if HEAD returns 405
	body, err = f.request(http.MethodGet)
	if err != nil {
		return nil, err
	}

	defer body.Close()

	return f.fi, nil
}
