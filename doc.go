// Package httpvfs exposes remote HTTP/HTTPS resources as read-only, randomly
// seekable byte streams, and models their URLs as filesystem paths.
//
// A [SeekableByteChannel] turns point reads and seeks into ranged GET
// requests, skipping bytes on the live stream for short forward seeks and
// reopening the connection otherwise. All network calls run through a
// policy-driven retry engine (see the retry package) that classifies
// transient failures by HTTP status code, error identity, and message.
//
// The [HTTP] and [HTTPS] providers cache one read-only [FileSystem] per
// authority and construct [Path] values with normalized, percent-encoded
// path components.
//
// For callers that want the standard library abstraction instead, [New]
// returns an fs.FS over an HTTP endpoint whose files support io.Seeker and
// io.ReaderAt, and an [FSMux] maps URL schemes to filesystem providers.
package httpvfs
