package httpvfs

import (
	"net/http"
	"time"

	"github.com/htsio/go-httpvfs/retry"
)

// RedirectPolicy controls how the HTTP client follows redirects.
type RedirectPolicy int

const (
	// RedirectNormal follows redirects, except from HTTPS to HTTP.
	RedirectNormal RedirectPolicy = iota
	// RedirectNever does not follow redirects.
	RedirectNever
	// RedirectAlways follows every redirect, including HTTPS to HTTP
	// downgrades.
	RedirectAlways
)

// Settings configure newly created file systems, channels and probes.
type Settings struct {
	// Timeout bounds connection establishment.
	Timeout time.Duration

	// Redirect selects the redirect-following policy.
	Redirect RedirectPolicy

	// Headers are added to every outgoing request. May be nil.
	Headers http.Header

	// Retry configures failure classification and the retry budget.
	Retry retry.Settings
}

// DefaultSettings returns the settings used by a provider until overridden:
// a 10 second connection timeout, normal redirect following, and the default
// retry behavior.
func DefaultSettings() Settings {
	return Settings{
		Timeout:  10 * time.Second,
		Redirect: RedirectNormal,
		Retry:    retry.DefaultSettings(),
	}
}
