package httpvfs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/htsio/go-httpvfs/retry"
)

// skipDistance is the forward seek distance, in bytes, within which the
// channel consumes the current stream instead of opening a new connection.
const skipDistance = 8 * 1024

// SeekableByteChannel exposes a remote HTTP/S resource as a read-only,
// randomly seekable byte stream. Point reads and seeks become ranged GET
// requests; short forward seeks are served by skipping bytes on the live
// stream, and transient failures are retried by reopening at the current
// position.
//
// Every method serializes on the channel, one operation at a time. The
// channel is otherwise not meant to be shared across goroutines.
type SeekableByteChannel struct {
	mu sync.Mutex

	ctx     context.Context
	u       *url.URL
	client  *http.Client
	headers http.Header
	handler *retry.Handler
	logger  *slog.Logger

	// the inner stream: the live response body and a buffered view of it
	body   io.ReadCloser
	reader *bufio.Reader

	position int64
	size     int64 // -1 until the first HEAD
	open     bool
}

// NewSeekableByteChannel opens a channel for u at the given initial byte
// offset, building a client from settings. The initial connection is
// established under retry; a non-zero offset becomes an open-ended range
// request that the server must answer with 206.
func NewSeekableByteChannel(ctx context.Context, u *url.URL, settings Settings, position int64) (*SeekableByteChannel, error) {
	if u == nil {
		return nil, invalidArgError("nil URL")
	}

	if position < 0 {
		return nil, invalidArgError("cannot open %s at negative position %d", u.Redacted(), position)
	}

	handler, err := retry.New(settings.Retry, u)
	if err != nil {
		return nil, err
	}

	c := &SeekableByteChannel{
		ctx:     ctx,
		u:       u,
		client:  newHTTPClient(settings),
		headers: settings.Headers,
		handler: handler,
		logger:  slog.Default(),
		size:    -1,
	}

	if err := handler.RunWithRetries(ctx, func() error { return c.openStream(position) }); err != nil {
		return nil, err
	}

	return c, nil
}

// OpenURL opens a channel for u at offset zero using the provider-wide
// settings for u's scheme.
func OpenURL(ctx context.Context, u *url.URL) (*SeekableByteChannel, error) {
	if u == nil {
		return nil, invalidArgError("nil URL")
	}

	provider, err := ForScheme(u.Scheme)
	if err != nil {
		return nil, err
	}

	return NewSeekableByteChannel(ctx, u, provider.Settings(), 0)
}

// newChannelWithClient is used by the fs.FS adapter to share one client
// across all files of a filesystem.
func newChannelWithClient(ctx context.Context, u *url.URL, settings Settings, client *http.Client, position int64) (*SeekableByteChannel, error) {
	handler, err := retry.New(settings.Retry, u)
	if err != nil {
		return nil, err
	}

	c := &SeekableByteChannel{
		ctx:     ctx,
		u:       u,
		client:  client,
		headers: settings.Headers,
		handler: handler,
		logger:  slog.Default(),
		size:    -1,
	}

	if err := handler.RunWithRetries(ctx, func() error { return c.openStream(position) }); err != nil {
		return nil, err
	}

	return c, nil
}

// Read reads up to len(p) bytes into p from the current position and
// advances the position by the number of bytes read. End of stream is
// reported as io.EOF with the position unchanged.
//
// A failed read consumes nothing: the reported count is zero and the
// position does not move, so the retry path can reopen at the same offset
// and read into the same destination again.
func (c *SeekableByteChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return 0, fs.ErrClosed
	}

	var n int

	err := c.handler.TryOnceThenWithRetries(c.ctx,
		func() error {
			var err error
			n, err = readPreservingBuffer(c.reader, p)

			return err
		},
		func() error {
			// a failed read leaves the inner stream in an indeterminate
			// state, so reopen it at the current position first
			c.closeSilently()
			if err := c.openStream(c.position); err != nil {
				return err
			}

			var err error
			n, err = readPreservingBuffer(c.reader, p)

			return err
		})
	if err != nil && err != io.EOF {
		return 0, err
	}

	c.position += int64(n)

	return n, err
}

// readPreservingBuffer reads once from r into p, committing the result only
// on success. On any failure other than end-of-stream it reports zero bytes
// consumed, even if the underlying read moved data into p, so the caller's
// view of the destination is unperturbed.
func readPreservingBuffer(r io.Reader, p []byte) (int, error) {
	n, err := r.Read(p)
	if err != nil && err != io.EOF {
		return 0, err
	}

	if n > 0 {
		// data arrived; end-of-stream will be reported by the next read
		return n, nil
	}

	return n, err
}

// Position returns the current byte offset.
func (c *SeekableByteChannel) Position() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return 0, fs.ErrClosed
	}

	return c.position, nil
}

// SetPosition seeks to the given absolute byte offset. A short forward seek
// (less than 8 KiB) skips bytes on the live stream; a backward or long
// forward seek closes the stream and reopens it with a range request at the
// new offset.
func (c *SeekableByteChannel) SetPosition(newPosition int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setPosition(newPosition)
}

func (c *SeekableByteChannel) setPosition(newPosition int64) error {
	if !c.open {
		return fs.ErrClosed
	}

	if newPosition < 0 {
		return invalidArgError("cannot seek to a negative position (from %d to %d)", c.position, newPosition)
	}

	switch {
	case newPosition == c.position:
		return nil

	case c.position < newPosition && newPosition-c.position < skipDistance:
		err := c.handler.TryOnceThenWithRetries(c.ctx,
			func() error {
				toSkip := newPosition - c.position
				if err := skipN(c.reader, toSkip); err != nil {
					return err
				}

				c.logger.Debug("skipped bytes on the live stream",
					slog.Int64("skipped", toSkip),
					slog.Int64("new_position", newPosition),
					slog.Int64("old_position", c.position))

				return nil
			},
			func() error {
				c.closeSilently()

				return c.openStream(newPosition)
			})
		if err != nil {
			return err
		}

	default:
		c.closeSilently()

		if err := c.handler.RunWithRetries(c.ctx, func() error { return c.openStream(newPosition) }); err != nil {
			return err
		}
	}

	c.position = newPosition

	return nil
}

// skipN discards exactly n bytes from r. A stream that ends early is an
// unexpected EOF, which the default retry settings treat as transient.
func skipN(r io.Reader, n int64) error {
	skipped, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF {
		return fmt.Errorf("stream ended after skipping %d of %d bytes: %w", skipped, n, io.ErrUnexpectedEOF)
	}

	return err
}

// Seek implements io.Seeker in terms of SetPosition. SeekEnd resolves the
// resource size with a HEAD request when it is not already cached.
func (c *SeekableByteChannel) Seek(offset int64, whence int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return 0, fs.ErrClosed
	}

	var abs int64

	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = c.position + offset
	case io.SeekEnd:
		size, err := c.fetchSize()
		if err != nil {
			return 0, err
		}

		abs = size + offset
	default:
		return 0, invalidArgError("invalid seek whence %d", whence)
	}

	if err := c.setPosition(abs); err != nil {
		return 0, err
	}

	return abs, nil
}

// Size returns the total size of the resource. The first call issues a HEAD
// request under retry and requires exactly one non-negative Content-Length;
// the value is cached for the life of the channel.
func (c *SeekableByteChannel) Size() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return 0, fs.ErrClosed
	}

	return c.fetchSize()
}

func (c *SeekableByteChannel) fetchSize() (int64, error) {
	err := c.handler.RunWithRetries(c.ctx, func() error {
		if c.size != -1 {
			return nil
		}

		req, err := http.NewRequestWithContext(c.ctx, http.MethodHead, c.u.String(), nil)
		if err != nil {
			return err
		}

		applyHeaders(req, c.headers)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}

		defer resp.Body.Close()

		if err := checkResponse(resp.StatusCode, c.u, false); err != nil {
			return err
		}

		lengths := resp.Header.Values("Content-Length")
		if len(lengths) != 1 {
			return fmt.Errorf("failed to get size of resource at %s, content-length=%v",
				c.u.Redacted(), lengths)
		}

		size, err := strconv.ParseInt(lengths[0], 10, 64)
		if err != nil || size < 0 {
			return fmt.Errorf("invalid content-length %q for %s", lengths[0], c.u.Redacted())
		}

		c.size = size

		return nil
	})
	if err != nil {
		return 0, err
	}

	return c.size, nil
}

// IsOpen reports whether the channel is open.
func (c *SeekableByteChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.open
}

// Close closes the channel and its inner stream. Closing a closed channel is
// a no-op.
func (c *SeekableByteChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil
	}

	c.open = false

	if c.body == nil {
		return nil
	}

	err := c.body.Close()
	c.body = nil
	c.reader = nil

	return err
}

// closeSilently closes the inner stream in preparation for a reopen,
// swallowing errors. Callers must hold the lock.
func (c *SeekableByteChannel) closeSilently() {
	if c.body != nil {
		_ = c.body.Close()
		c.body = nil
		c.reader = nil
	}

	c.open = false
}

// Write is unsupported: the channel is read-only.
func (c *SeekableByteChannel) Write([]byte) (int, error) {
	return 0, ErrNonWritable
}

// Truncate is unsupported: the channel is read-only.
func (c *SeekableByteChannel) Truncate(int64) error {
	return ErrNonWritable
}

// openStream issues a GET for the channel's URL, with an open-ended range
// header when position is non-zero, and installs the response body as the
// inner stream. Callers must hold the lock.
func (c *SeekableByteChannel) openStream(position int64) error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.u.String(), nil)
	if err != nil {
		return err
	}

	applyHeaders(req, c.headers)

	isRangeRequest := position != 0
	if isRangeRequest {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", position))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s at position %d: %w", c.u.Redacted(), position, err)
	}

	if err := checkResponse(resp.StatusCode, c.u, isRangeRequest); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		return err
	}

	c.body = resp.Body
	c.reader = bufio.NewReader(resp.Body)
	c.position = position
	c.open = true

	return nil
}

// checkResponse validates an HTTP status against the kind of request made.
// A 200 answers a whole-resource request and a 206 answers a range request;
// crossing the two is an IncompatibleRangeError. A 404 maps to
// fs.ErrNotExist and anything else to an UnexpectedResponseError.
func checkResponse(code int, u *url.URL, isRangeRequest bool) error {
	switch code {
	case http.StatusOK:
		if isRangeRequest {
			return &IncompatibleRangeError{Code: code, URL: u.Redacted(), RangeRequest: true}
		}

		return nil
	case http.StatusPartialContent:
		if !isRangeRequest {
			return &IncompatibleRangeError{Code: code, URL: u.Redacted(), RangeRequest: false}
		}

		return nil
	case http.StatusNotFound:
		return fmt.Errorf("no resource found at %s (http 404): %w", u.Redacted(), fs.ErrNotExist)
	default:
		return &UnexpectedResponseError{Code: code, URL: u.Redacted()}
	}
}

var (
	_ io.Reader = (*SeekableByteChannel)(nil)
	_ io.Seeker = (*SeekableByteChannel)(nil)
	_ io.Closer = (*SeekableByteChannel)(nil)
	_ io.Writer = (*SeekableByteChannel)(nil)
)
