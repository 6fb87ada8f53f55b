package httpvfs

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Provider creates and caches file systems for a single URL scheme. HTTP and
// HTTPS behave identically; the only per-scheme variance is the scheme
// string itself, so there is one provider type and two singletons.
type Provider struct {
	scheme string

	// authority -> *FileSystem
	filesystems sync.Map

	// provider-wide settings, initialized on first use
	settings atomic.Pointer[Settings]
}

// The singleton providers.
//
//nolint:gochecknoglobals
var (
	HTTP  = &Provider{scheme: "http"}
	HTTPS = &Provider{scheme: "https"}
)

// ForScheme returns the provider for the given scheme, matched
// case-insensitively.
func ForScheme(scheme string) (*Provider, error) {
	switch strings.ToLower(scheme) {
	case "http":
		return HTTP, nil
	case "https":
		return HTTPS, nil
	}

	return nil, fmt.Errorf("no provider available for scheme %q: %w", scheme, ErrProviderMismatch)
}

// Scheme returns the URL scheme served by this provider.
func (p *Provider) Scheme() string {
	return p.scheme
}

// Settings returns the provider-wide settings, installing the defaults on
// first use.
func (p *Provider) Settings() Settings {
	if s := p.settings.Load(); s != nil {
		return *s
	}

	def := DefaultSettings()
	p.settings.CompareAndSwap(nil, &def)

	return *p.settings.Load()
}

// SetSettings atomically replaces the provider-wide settings. New file
// systems, channels and probes pick up the new value; existing channels keep
// the settings they were built with.
func (p *Provider) SetSettings(s Settings) {
	p.settings.Store(&s)
}

// checkURL validates that u is non-nil, has an authority, and carries this
// provider's scheme.
func (p *Provider) checkURL(u *url.URL) error {
	if u == nil {
		return invalidArgError("nil URL")
	}

	if u.Host == "" {
		return invalidArgError("%s requires a URL with an authority: invalid %q", p.scheme, u)
	}

	if !strings.EqualFold(u.Scheme, p.scheme) {
		return fmt.Errorf("invalid scheme %q for provider %s: %w", u.Scheme, p.scheme, ErrProviderMismatch)
	}

	return nil
}

// authorityOf renders the authority of u, including userinfo when present.
func authorityOf(u *url.URL) string {
	if u.User != nil {
		return u.User.String() + "@" + u.Host
	}

	return u.Host
}

// NewFileSystem creates the file system for u's authority. It fails with
// ErrFileSystemExists when one was already created.
func (p *Provider) NewFileSystem(u *url.URL) (*FileSystem, error) {
	if err := p.checkURL(u); err != nil {
		return nil, err
	}

	authority := authorityOf(u)

	actual, loaded := p.filesystems.LoadOrStore(authority, &FileSystem{provider: p, authority: authority})
	if loaded {
		return nil, fmt.Errorf("%s://%s: %w", p.scheme, authority, ErrFileSystemExists)
	}

	return actual.(*FileSystem), nil
}

// GetFileSystem returns the cached file system for u's authority, or fails
// with ErrFileSystemNotFound.
func (p *Provider) GetFileSystem(u *url.URL) (*FileSystem, error) {
	if err := p.checkURL(u); err != nil {
		return nil, err
	}

	fsys, ok := p.filesystems.Load(authorityOf(u))
	if !ok {
		return nil, fmt.Errorf("%q: %w", u, ErrFileSystemNotFound)
	}

	return fsys.(*FileSystem), nil
}

// Path returns the path for u, creating the file system for its authority
// when needed.
func (p *Provider) Path(u *url.URL) (*Path, error) {
	if err := p.checkURL(u); err != nil {
		return nil, err
	}

	authority := authorityOf(u)
	fsys, _ := p.filesystems.LoadOrStore(authority, &FileSystem{provider: p, authority: authority})

	return fsys.(*FileSystem).PathFromURL(u)
}

// NewByteChannel opens a read-only seekable byte channel at offset zero for
// path. The only accepted flag is os.O_RDONLY; anything else is unsupported
// on this read-only provider.
func (p *Provider) NewByteChannel(ctx context.Context, path *Path, flag int) (*SeekableByteChannel, error) {
	if path == nil {
		return nil, invalidArgError("nil path")
	}

	if flag != os.O_RDONLY {
		return nil, unsupportedError(fmt.Sprintf("open flags %#x: only read is supported", flag))
	}

	u, err := path.URL()
	if err != nil {
		return nil, err
	}

	if err := p.checkURL(u); err != nil {
		return nil, err
	}

	return NewSeekableByteChannel(ctx, u, p.Settings(), 0)
}

// AccessMode is a mode to check for in CheckAccess.
type AccessMode int

const (
	// ReadAccess checks that the resource can be read.
	ReadAccess AccessMode = iota
	// WriteAccess checks that the resource can be written.
	WriteAccess
	// ExecuteAccess checks that the resource can be executed.
	ExecuteAccess
)

func (m AccessMode) String() string {
	switch m {
	case ReadAccess:
		return "read"
	case WriteAccess:
		return "write"
	case ExecuteAccess:
		return "execute"
	}

	return fmt.Sprintf("access mode %d", int(m))
}

// CheckAccess probes the existence of path with a HEAD request and verifies
// the requested access modes. A missing resource fails with fs.ErrNotExist;
// any mode other than ReadAccess is unsupported.
func (p *Provider) CheckAccess(ctx context.Context, path *Path, modes ...AccessMode) error {
	if path == nil {
		return invalidArgError("nil path")
	}

	u, err := path.URL()
	if err != nil {
		return err
	}

	if err := p.checkURL(u); err != nil {
		return err
	}

	exists, err := Exists(ctx, u, p.Settings())
	if err != nil {
		return err
	}

	if !exists {
		return &fs.PathError{Op: "access", Path: u.Redacted(), Err: fs.ErrNotExist}
	}

	for _, mode := range modes {
		if mode != ReadAccess {
			return unsupportedError(fmt.Sprintf("unsupported access mode: %s", mode))
		}
	}

	return nil
}

// FileAttributes is the minimal attribute view of an HTTP resource: it is
// always a regular file, and nothing else is known without a request.
type FileAttributes struct{}

// IsRegularFile is always true.
func (FileAttributes) IsRegularFile() bool { return true }

// IsDirectory is always false.
func (FileAttributes) IsDirectory() bool { return false }

// IsSymbolicLink is always false.
func (FileAttributes) IsSymbolicLink() bool { return false }

// IsOther is always false.
func (FileAttributes) IsOther() bool { return false }

// Size is not available from attributes; use the channel's Size.
func (FileAttributes) Size() (int64, error) {
	return 0, unsupportedError("attributes: size")
}

// ModTime is not available from attributes.
func (FileAttributes) ModTime() (time.Time, error) {
	return time.Time{}, unsupportedError("attributes: mod time")
}

// ReadAttributes returns the attribute view for path.
func (p *Provider) ReadAttributes(path *Path) (FileAttributes, error) {
	if path == nil {
		return FileAttributes{}, invalidArgError("nil path")
	}

	return FileAttributes{}, nil
}

// CreateDirectory is unsupported: the provider is read-only.
func (p *Provider) CreateDirectory(*Path) error {
	return unsupportedError("create directory: provider is read-only")
}

// Delete is unsupported: the provider is read-only.
func (p *Provider) Delete(*Path) error {
	return unsupportedError("delete: provider is read-only")
}

// Move is unsupported: the provider is read-only.
func (p *Provider) Move(_, _ *Path) error {
	return unsupportedError("move: provider is read-only")
}

// Copy is unsupported: the provider is read-only.
func (p *Provider) Copy(_, _ *Path) error {
	return unsupportedError("copy: provider is read-only")
}

// SetAttribute is unsupported: the provider is read-only.
func (p *Provider) SetAttribute(*Path, string, any) error {
	return unsupportedError("set attribute: provider is read-only")
}

func (p *Provider) String() string {
	return "httpvfs.Provider[" + p.scheme + "]"
}
