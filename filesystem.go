package httpvfs

import (
	"log/slog"
	"net/url"
	"strings"
)

// FileSystem represents the resources reachable under one scheme and
// authority, e.g. everything under "https://example.com". File systems are
// immutable, always open and always read-only; they are owned by their
// provider's authority map.
type FileSystem struct {
	provider  *Provider
	authority string
}

// Provider returns the provider that created this file system.
func (f *FileSystem) Provider() *Provider {
	return f.provider
}

// Authority returns the authority (userinfo@host:port) of this file system.
func (f *FileSystem) Authority() string {
	return f.authority
}

// Separator returns the path separator, always "/".
func (f *FileSystem) Separator() string {
	return separator
}

// IsOpen reports whether the file system is open. Always true: open
// connections are not tracked, so the file system cannot be closed.
func (f *FileSystem) IsOpen() bool {
	return true
}

// IsReadOnly reports whether the file system is read-only. Always true.
func (f *FileSystem) IsReadOnly() bool {
	return true
}

// Close is a no-op: the file system stays open for the life of the process.
func (f *FileSystem) Close() error {
	slog.Warn("http file system is always open (not closed)",
		slog.String("authority", f.authority))

	return nil
}

// Root returns the root path of this file system.
func (f *FileSystem) Root() *Path {
	return newPath(f, nil, true)
}

// Path constructs an absolute path by joining the given strings with the
// separator. The joined string must be empty or begin with the separator,
// and must be valid encoded URI text; query and fragment parts are split
// off the end.
func (f *FileSystem) Path(first string, more ...string) (*Path, error) {
	joined := first
	if len(more) > 0 {
		joined += separator + strings.Join(more, separator)
	}

	if joined != "" && !strings.HasPrefix(joined, separator) {
		return nil, invalidPathError(joined, "cannot construct a relative http/s path")
	}

	if err := validateEncoded(joined); err != nil {
		return nil, err
	}

	// split off the query and fragment; a leading "//" must stay part of
	// the path rather than being read as a URI authority
	rest := joined

	var fragment string

	hasFragment := false
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		fragment, hasFragment = rest[i+1:], true
		rest = rest[:i]
	}

	var query string

	hasQuery := false
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		query, hasQuery = rest[i+1:], true
		rest = rest[:i]
	}

	normalized, err := normalizePathBytes(rest, true)
	if err != nil {
		return nil, err
	}

	p := newPath(f, normalized, true)
	if hasQuery {
		p = p.withQuery(query)
	}

	if hasFragment {
		p = p.withFragment(fragment)
	}

	return p, nil
}

// PathFromURL constructs a path from the path, query and fragment of u,
// which are taken in their raw percent-encoded form. The scheme and
// authority of u are ignored.
func (f *FileSystem) PathFromURL(u *url.URL) (*Path, error) {
	if u == nil {
		return nil, invalidArgError("nil URL")
	}

	normalized, err := normalizePathBytes(u.EscapedPath(), true)
	if err != nil {
		return nil, err
	}

	p := newPath(f, normalized, true)
	if u.ForceQuery || u.RawQuery != "" {
		p = p.withQuery(u.RawQuery)
	}

	if u.Fragment != "" {
		p = p.withFragment(u.EscapedFragment())
	}

	return p, nil
}

// equal reports whether other is backed by the same provider and authority.
// Authorities compare case-insensitively.
func (f *FileSystem) equal(other *FileSystem) bool {
	if other == nil {
		return false
	}

	return f.provider == other.provider && strings.EqualFold(f.authority, other.authority)
}

func (f *FileSystem) String() string {
	return f.provider.scheme + "://" + f.authority
}
