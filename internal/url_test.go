package internal

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()

	u, err := url.Parse(s)
	require.NoError(t, err)

	return u
}

func TestSubURL(t *testing.T) {
	base := mustURL(t, "https://example.com/dir/")
	sub, err := SubURL(base, "sub")
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/dir/sub", sub.String())

	base = mustURL(t, "http://example.com/dir/")
	sub, err = SubURL(base, "sub/foo?param=foo")
	assert.NoError(t, err)
	assert.Equal(t, "http://example.com/dir/sub/foo?param=foo", sub.String())

	base = mustURL(t, "https://example.com/dir/?param1=foo&param2=bar")
	sub, err = SubURL(base, "sub/foo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/dir/sub/foo?param1=foo&param2=bar", sub.String())

	base = mustURL(t, "https://example.com/dir/?param1=foo&param2=bar")
	sub, err = SubURL(base, "sub/foo?param3=baz")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/dir/sub/foo?param1=foo&param2=bar&param3=baz", sub.String())
}
