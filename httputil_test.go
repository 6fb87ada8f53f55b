package httpvfs

import (
	"context"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htsio/go-httpvfs/retry"
)

func existsSettings() Settings {
	s := DefaultSettings()
	s.Retry.MaxRetries = 1

	return s
}

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/known.txt":
			_, _ = w.Write([]byte("known"))
		case "/partial.txt":
			w.WriteHeader(http.StatusPartialContent)
		case "/secret.txt":
			w.WriteHeader(http.StatusForbidden)
		case "/auth.txt":
			w.WriteHeader(http.StatusUnauthorized)
		case "/proxy.txt":
			w.WriteHeader(http.StatusProxyAuthRequired)
		case "/teapot.txt":
			w.WriteHeader(http.StatusTeapot)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	probe := func(path string) (bool, error) {
		u, err := url.Parse(srv.URL + path)
		require.NoError(t, err)

		return Exists(context.Background(), u, existsSettings())
	}

	found, err := probe("/known.txt")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = probe("/partial.txt")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = probe("/missing.txt")
	require.NoError(t, err)
	assert.False(t, found)

	for _, denied := range []string{"/secret.txt", "/auth.txt", "/proxy.txt"} {
		_, err = probe(denied)
		assert.ErrorIs(t, err, fs.ErrPermission, "path %s", denied)
	}

	_, err = probe("/teapot.txt")

	var respErr *UnexpectedResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusTeapot, respErr.Code)
}

func TestExistsRetriesTransientFailures(t *testing.T) {
	var failures atomic.Int32

	failures.Store(2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failures.Add(-1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL + "/flaky.txt")
	require.NoError(t, err)

	settings := DefaultSettings()
	settings.Retry.MaxRetries = 3

	found, err := Exists(context.Background(), u, settings)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestExistsExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL + "/broken.txt")
	require.NoError(t, err)

	_, err = Exists(context.Background(), u, existsSettings())

	var oorErr *retry.OutOfRetriesError
	require.ErrorAs(t, err, &oorErr)
	assert.Equal(t, 1, oorErr.Retries)
}

func TestExistsNilURL(t *testing.T) {
	_, err := Exists(context.Background(), nil, existsSettings())
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestIsUnresolvedHost(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "unresolvable.invalid", IsNotFound: true}

	assert.True(t, isUnresolvedHost(dnsErr))
	assert.True(t, isUnresolvedHost(fmt.Errorf("dial: %w", dnsErr)))
	assert.True(t, isUnresolvedHost(&url.Error{Op: "Head", URL: "http://unresolvable.invalid/", Err: &net.OpError{Op: "dial", Err: dnsErr}}))

	assert.False(t, isUnresolvedHost(&net.DNSError{Err: "server misbehaving"}))
	assert.False(t, isUnresolvedHost(fmt.Errorf("some other failure")))
	assert.False(t, isUnresolvedHost(nil))
}

func TestNewHTTPClientRedirects(t *testing.T) {
	var target *httptest.Server

	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, target.URL+"/final", http.StatusFound)

			return
		}

		_, _ = w.Write([]byte("made it"))
	}))
	t.Cleanup(target.Close)

	get := func(policy RedirectPolicy) *http.Response {
		t.Helper()

		settings := DefaultSettings()
		settings.Redirect = policy

		client := newHTTPClient(settings)

		resp, err := client.Get(target.URL + "/redirect")
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })

		return resp
	}

	resp := get(RedirectNormal)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(RedirectAlways)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(RedirectNever)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestSettingsHeadersAreSent(t *testing.T) {
	var gotAgent atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL + "/thing")
	require.NoError(t, err)

	settings := existsSettings()
	settings.Headers = http.Header{"User-Agent": []string{"httpvfs-test"}}

	_, err = Exists(context.Background(), u, settings)
	require.NoError(t, err)
	assert.Equal(t, "httpvfs-test", gotAgent.Load())
}
