package httpvfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"

	"github.com/htsio/go-httpvfs/internal/causes"
	"github.com/htsio/go-httpvfs/retry"
)

// newHTTPClient builds an HTTP client applying the timeout and redirect
// policy from settings. The client is a lightweight handle meant to be
// reused across the channels and probes of one file system.
func newHTTPClient(settings Settings) *http.Client {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if ok {
		transport = transport.Clone()
	} else {
		transport = &http.Transport{}
	}

	transport.DialContext = (&net.Dialer{Timeout: settings.Timeout}).DialContext

	client := &http.Client{Transport: transport}

	switch settings.Redirect {
	case RedirectNever:
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	case RedirectNormal:
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}

			// never downgrade from https to http
			if via[len(via)-1].URL.Scheme == "https" && req.URL.Scheme == "http" {
				return http.ErrUseLastResponse
			}

			return nil
		}
	case RedirectAlways:
		// the client's default behavior
	}

	return client
}

// applyHeaders copies the configured extra headers onto req.
func applyHeaders(req *http.Request, headers http.Header) {
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// Exists probes u with a HEAD request under retry. A 200 or 206 means the
// resource exists; a 404, or a failure to resolve the host at all, means it
// does not. A 401, 403 or 407 fails with fs.ErrPermission rather than
// pretending the resource is absent, and any other status fails with an
// UnexpectedResponseError.
func Exists(ctx context.Context, u *url.URL, settings Settings) (bool, error) {
	if u == nil {
		return false, invalidArgError("nil URL")
	}

	client := newHTTPClient(settings)

	return exists(ctx, u, settings, client)
}

func exists(ctx context.Context, u *url.URL, settings Settings, client *http.Client) (bool, error) {
	handler, err := retry.New(settings.Retry, u)
	if err != nil {
		return false, err
	}

	var found bool

	err = handler.RunWithRetries(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
		if err != nil {
			return err
		}

		applyHeaders(req, settings.Headers)

		resp, err := client.Do(req)
		if err != nil {
			if isUnresolvedHost(err) {
				found = false

				return nil
			}

			return err
		}

		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusPartialContent:
			found = true

			return nil
		case http.StatusNotFound:
			found = false

			return nil
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusProxyAuthRequired:
			return fmt.Errorf("access denied to %s (http %d): %w",
				u.Redacted(), resp.StatusCode, fs.ErrPermission)
		default:
			_, _ = io.Copy(io.Discard, resp.Body)

			return &UnexpectedResponseError{Code: resp.StatusCode, URL: u.Redacted()}
		}
	})

	return found, err
}

// isUnresolvedHost reports whether err's cause chain contains a failure to
// resolve the target host.
func isUnresolvedHost(err error) bool {
	return causes.Any(err, func(cause error) bool {
		dnsErr, ok := cause.(*net.DNSError)

		return ok && dnsErr.IsNotFound
	})
}
