package httpvfs

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

const (
	separator     = "/"
	separatorChar = byte('/')
)

// Path locates a resource within a FileSystem. It holds the normalized,
// percent-encoded path component of a URL plus its optional raw query and
// fragment, and an absolute flag.
//
// The stored bytes never contain consecutive separators and never end in a
// separator, except for the single-separator root. Paths are immutable value
// objects; every operation returns a new Path.
type Path struct {
	fs *FileSystem

	// normalized, percent-encoded path bytes
	path []byte

	query       string
	fragment    string
	hasQuery    bool
	hasFragment bool

	absolute bool

	offsetsOnce sync.Once
	offsets     []int
}

// newPath builds a Path from already-normalized bytes. It performs no checks.
func newPath(fs *FileSystem, normalized []byte, absolute bool) *Path {
	return &Path{fs: fs, path: normalized, absolute: absolute}
}

func (p *Path) withQuery(query string) *Path {
	p.query = query
	p.hasQuery = true

	return p
}

func (p *Path) withFragment(fragment string) *Path {
	p.fragment = fragment
	p.hasFragment = true

	return p
}

// FileSystem returns the file system that owns this path.
func (p *Path) FileSystem() *FileSystem {
	return p.fs
}

// IsAbsolute reports whether this path is absolute. Only results of Subpath,
// Name, FileName and explicitly relative constructions are relative.
func (p *Path) IsAbsolute() bool {
	return p.absolute
}

// Root returns the absolute root path of the owning file system: the path
// with an empty byte sequence and no query or fragment.
func (p *Path) Root() *Path {
	return newPath(p.fs, nil, true)
}

// FileName returns the last name element as a relative path, or nil for the
// root.
func (p *Path) FileName() *Path {
	offs := p.initOffsets()
	if len(offs) == 0 {
		return nil
	}

	return p.subpath(len(offs)-1, len(offs), false)
}

// Parent returns the path without its last name element, keeping the
// absolute flag. The root's parent is the root itself.
func (p *Path) Parent() *Path {
	offs := p.initOffsets()
	if len(offs) == 0 {
		return p.Root()
	}

	return p.subpath(0, len(offs)-1, p.absolute)
}

// NameCount returns the number of name elements in the path. The root has
// zero.
func (p *Path) NameCount() int {
	return len(p.initOffsets())
}

// Name returns the name element at index i as a relative path.
func (p *Path) Name(i int) (*Path, error) {
	return p.Subpath(i, i+1)
}

// Subpath returns a relative path over the name elements in [begin, end).
// Indices follow the strict bounds 0 <= begin < NameCount() and
// begin < end <= NameCount().
func (p *Path) Subpath(begin, end int) (*Path, error) {
	count := p.NameCount()
	if begin < 0 || begin >= count || end <= begin || end > count {
		return nil, invalidArgError("invalid indexes for path with %d name(s): [%d, %d]", count, begin, end)
	}

	return p.subpath(begin, end, false), nil
}

// subpath assumes offsets are initialized and the indices are in bounds.
func (p *Path) subpath(begin, end int, absolute bool) *Path {
	offs := p.offsets

	b := 0
	if offs[begin] >= 0 {
		b = offs[begin]
	}

	e := len(p.path)
	if end < len(offs) {
		e = offs[end]
	}

	sub := make([]byte, e-b)
	copy(sub, p.path[b:e])

	return newPath(p.fs, sub, absolute)
}

// StartsWith reports whether this path starts with the name elements of
// other. Paths from a different file system never match, and the match must
// end on a name boundary.
func (p *Path) StartsWith(other *Path) bool {
	if other == nil || !p.fs.equal(other.fs) {
		return false
	}

	return p.startsWithBytes(other.path)
}

// StartsWithString is the string form of StartsWith: other is normalized
// first. Malformed input never matches.
func (p *Path) StartsWithString(other string) bool {
	normalized, err := normalizePathBytes(other, false)
	if err != nil {
		return false
	}

	return p.startsWithBytes(normalized)
}

func (p *Path) startsWithBytes(other []byte) bool {
	// other may still carry a trailing separator
	olen := lastIndexWithoutTrailingSlash(other) + 1
	if olen > len(p.path) {
		return false
	}

	if !bytes.Equal(p.path[:olen], other[:olen]) {
		return false
	}

	// require a name boundary at the end of the match
	return olen >= len(p.path) || p.path[olen] == separatorChar
}

// EndsWith reports whether this path ends with the name elements of other.
// Paths from a different file system never match. A match at the start of
// the path is accepted, so "/foo/bar" ends with "bar".
func (p *Path) EndsWith(other *Path) bool {
	if other == nil || !p.fs.equal(other.fs) {
		return false
	}

	return p.endsWithBytes(other.path, true)
}

// EndsWithString is the string form of EndsWith, with a stricter boundary
// rule inherited from the standard path contract: unless the match covers
// the whole path, the byte before it must be a separator. "/foo/bar" ends
// with "bar" and with "/foo/bar", but not with "/bar". The empty string
// matches every path.
func (p *Path) EndsWithString(other string) bool {
	if other == "" {
		return true
	}

	normalized, err := normalizePathBytes(other, false)
	if err != nil {
		return false
	}

	return p.endsWithBytes(normalized, false)
}

func (p *Path) endsWithBytes(other []byte, pathVersion bool) bool {
	olast := lastIndexWithoutTrailingSlash(other)
	last := lastIndexWithoutTrailingSlash(p.path)

	if olast == -1 {
		return last == -1
	}

	if last < olast {
		return false
	}

	for ; olast >= 0; olast, last = olast-1, last-1 {
		if other[olast] != p.path[last] {
			return false
		}
	}

	// the match covers the whole path
	if last == -1 {
		return true
	}

	if pathVersion {
		return true
	}

	return p.path[last] == separatorChar
}

// Resolve resolves other against this path: the result concatenates both
// path components with a single separator and adopts other's query and
// fragment, keeping this path's absolute flag. A nil other returns this
// path.
//
// Resolving an absolute other is deliberately unsupported, contrary to the
// generic path contract: silently treating an absolute path as an HTTP
// resource hides mistakes in code that mixes local and remote paths.
func (p *Path) Resolve(other *Path) (*Path, error) {
	if other == nil {
		return p, nil
	}

	if other.IsAbsolute() {
		return nil, unsupportedError(fmt.Sprintf(
			"resolve: cannot resolve absolute path %q against %q", other, p))
	}

	ob := other.path
	// a relative path renders without its leading separator
	if len(ob) > 0 && ob[0] == separatorChar {
		ob = ob[1:]
	}

	resolved := newPath(p.fs, concatPaths(p.path, ob), p.absolute)
	if other.hasQuery {
		resolved = resolved.withQuery(other.query)
	}

	if other.hasFragment {
		resolved = resolved.withFragment(other.fragment)
	}

	return resolved, nil
}

// ResolveString parses other as an already-encoded relative URI and resolves
// it. Unencoded characters (a literal space, control bytes, a stray '%') are
// rejected.
func (p *Path) ResolveString(other string) (*Path, error) {
	rel, err := p.fromRelativeString(other)
	if err != nil {
		return nil, err
	}

	return p.Resolve(rel)
}

// ResolveSibling resolves other against this path's parent. A nil other is
// an error.
func (p *Path) ResolveSibling(other *Path) (*Path, error) {
	if other == nil {
		return nil, invalidArgError("resolve sibling: nil path")
	}

	return p.Parent().Resolve(other)
}

// ResolveSiblingString is the string form of ResolveSibling.
func (p *Path) ResolveSiblingString(other string) (*Path, error) {
	rel, err := p.fromRelativeString(other)
	if err != nil {
		return nil, err
	}

	return p.ResolveSibling(rel)
}

// fromRelativeString parses other as an encoded relative URI reference.
func (p *Path) fromRelativeString(other string) (*Path, error) {
	if err := validateEncoded(other); err != nil {
		return nil, err
	}

	u, err := url.Parse(other)
	if err != nil {
		return nil, invalidArgError("cannot resolve against an invalid URI %q: %v", other, err)
	}

	if u.IsAbs() {
		return nil, unsupportedError(fmt.Sprintf(
			"resolve: resolving absolute URI %q against an HTTP path", other))
	}

	normalized, err := normalizePathBytes(u.EscapedPath(), false)
	if err != nil {
		return nil, err
	}

	rel := newPath(p.fs, normalized, false)
	if u.ForceQuery || u.RawQuery != "" {
		rel = rel.withQuery(u.RawQuery)
	}

	if u.Fragment != "" {
		rel = rel.withFragment(u.EscapedFragment())
	}

	return rel, nil
}

// URL reconstructs the scheme://authority/path[?query][#fragment] form of
// this path. The result round-trips: a path built from a URL converts back
// to a structurally equal URL.
func (p *Path) URL() (*url.URL, error) {
	u, err := url.Parse(p.uriString(true))
	if err != nil {
		return nil, fmt.Errorf("path %q does not form a valid URL: %w", p, err)
	}

	return u, nil
}

// ToAbsolute returns this path if it is already absolute, or an absolute
// twin of it otherwise.
func (p *Path) ToAbsolute() *Path {
	if p.absolute {
		return p
	}

	twin := newPath(p.fs, p.path, true)
	twin.query, twin.hasQuery = p.query, p.hasQuery
	twin.fragment, twin.hasFragment = p.fragment, p.hasFragment

	return twin
}

// Normalize is not supported: the stored form is already normalized and "."
// or ".." elements are preserved verbatim as resource names.
func (p *Path) Normalize() (*Path, error) {
	return nil, unsupportedError("normalize")
}

// Relativize is not supported.
func (p *Path) Relativize(*Path) (*Path, error) {
	return nil, unsupportedError("relativize")
}

// RealPath is not supported: there is no canonical form for a remote
// resource.
func (p *Path) RealPath() (*Path, error) {
	return nil, unsupportedError("real path")
}

// Compare orders paths: authority case-insensitively, then path bytes, then
// query and fragment with absent values first. Compare panics when other
// belongs to a different provider.
func (p *Path) Compare(other *Path) int {
	if p == other {
		return 0
	}

	if p.fs.provider != other.fs.provider {
		panic(fmt.Sprintf("cannot compare paths from different providers (%s vs %s)",
			p.fs.provider.scheme, other.fs.provider.scheme))
	}

	if c := strings.Compare(strings.ToLower(p.fs.authority), strings.ToLower(other.fs.authority)); c != 0 {
		return c
	}

	if c := bytes.Compare(p.path, other.path); c != 0 {
		return c
	}

	if c := compareOptional(p.hasQuery, p.query, other.hasQuery, other.query); c != 0 {
		return c
	}

	return compareOptional(p.hasFragment, p.fragment, other.hasFragment, other.fragment)
}

func compareOptional(aPresent bool, a string, bPresent bool, b string) int {
	switch {
	case !aPresent && !bPresent:
		return 0
	case !aPresent:
		return -1
	case !bPresent:
		return 1
	}

	return strings.Compare(a, b)
}

// Equal reports whether other is a path from the same provider with the
// same authority (case-insensitively), absolute flag, path bytes, query and
// fragment.
func (p *Path) Equal(other *Path) bool {
	if other == nil || p.fs.provider != other.fs.provider {
		return false
	}

	return p.absolute == other.absolute && p.Compare(other) == 0
}

// Hash returns a hash consistent with Equal: equal paths hash equal, and an
// absolute path hashes differently from its relative twin.
func (p *Path) Hash() uint32 {
	h := uint32(1)
	h = h*31 + boolHash(p.absolute)
	h = h*31 + stringHash(p.fs.provider.scheme)
	h = h*31 + stringHash(strings.ToLower(p.fs.authority))

	for _, b := range p.path {
		h = h*31 + uint32(b)
	}

	h = h*31 + optionalHash(p.hasQuery, p.query)
	h = h*31 + optionalHash(p.hasFragment, p.fragment)

	return h
}

func boolHash(b bool) uint32 {
	if b {
		return 1231
	}

	return 1237
}

func stringHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}

	return h
}

func optionalHash(present bool, s string) uint32 {
	if !present {
		return 0
	}

	return 1 + stringHash(s)
}

// String renders the path: the full URI form when absolute, the bare
// path[?query][#fragment] form when relative.
func (p *Path) String() string {
	return p.uriString(p.absolute)
}

func (p *Path) uriString(includeRoot bool) string {
	sb := strings.Builder{}

	if includeRoot {
		sb.WriteString(p.fs.provider.scheme)
		sb.WriteString("://")
		sb.WriteString(p.fs.authority)
		sb.Write(p.path)
	} else if len(p.path) != 0 {
		if p.path[0] == separatorChar {
			sb.Write(p.path[1:])
		} else {
			sb.Write(p.path)
		}
	}

	if p.hasQuery {
		sb.WriteByte('?')
		sb.WriteString(p.query)
	}

	if p.hasFragment {
		sb.WriteByte('#')
		sb.WriteString(p.fragment)
	}

	return sb.String()
}

// initOffsets computes the positions where name elements begin. An offset is
// the index of the separator that precedes the element, or -1 for a leading
// element with no separator.
func (p *Path) initOffsets() []int {
	p.offsetsOnce.Do(func() {
		// the single-separator root has no name elements
		if len(p.path) == 1 && p.path[0] == separatorChar {
			return
		}

		var offs []int
		if len(p.path) > 0 && p.path[0] != separatorChar {
			offs = append(offs, -1)
		}

		for i := 0; i < len(p.path); i++ {
			if p.path[i] == separatorChar {
				offs = append(offs, i)
			}
		}

		p.offsets = offs
	})

	return p.offsets
}

// normalizePathBytes converts path into normalized bytes: no NUL, no
// consecutive separators, no trailing separator. The empty path and a lone
// separator normalize to the empty root; a path of two or more separators
// collapses to the single-separator root. With requireAbsolute, a non-empty
// path must begin with a separator.
func normalizePathBytes(path string, requireAbsolute bool) ([]byte, error) {
	if requireAbsolute && path != "" && path[0] != separatorChar {
		return nil, invalidPathError(path, "relative HTTP/S paths are not supported")
	}

	if path == "" || path == separator {
		return nil, nil
	}

	buf := make([]byte, 0, len(path))

	var prev byte
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == 0 {
			return nil, invalidPathError(path, "NUL character not allowed in path")
		}

		if c == separatorChar && prev == separatorChar {
			continue
		}

		buf = append(buf, c)
		prev = c
	}

	if n := len(buf); n > 0 && buf[n-1] == separatorChar {
		buf = buf[:n-1]
	}

	if len(buf) == 0 {
		// the input was all separators
		buf = append(buf, separatorChar)
	}

	return buf, nil
}

// lastIndexWithoutTrailingSlash returns the last index of path to consider,
// ignoring a single trailing separator.
func lastIndexWithoutTrailingSlash(path []byte) int {
	last := len(path) - 1
	if last > 0 && path[last] == separatorChar {
		last--
	}

	return last
}

// concatPaths joins two normalized byte sequences with a single separator.
func concatPaths(a, b []byte) []byte {
	alen := lastIndexWithoutTrailingSlash(a) + 1

	if len(b) == 0 {
		out := make([]byte, alen)
		copy(out, a[:alen])

		return out
	}

	// the single-separator root contributes only the joining separator
	if alen == 1 && a[0] == separatorChar {
		alen = 0
	}

	out := make([]byte, 0, alen+1+len(b))
	out = append(out, a[:alen]...)
	out = append(out, separatorChar)
	out = append(out, b...)

	return out
}

// validateEncoded rejects strings that are not already percent-encoded URI
// text: whitespace, control bytes, and '%' not followed by two hex digits.
func validateEncoded(s string) error {
	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			return invalidArgError("unencoded whitespace at index %d in %q", i, s)
		case c < 0x20 || c == 0x7f:
			return invalidArgError("control character at index %d in %q", i, s)
		case c == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return invalidArgError("malformed percent escape at index %d in %q", i, s)
			}

			i += 2
		}
	}

	return nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
