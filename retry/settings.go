package retry

import (
	"crypto/tls"
	"io"
	"net"
	"os"
	"syscall"
)

// Settings configure the classification and budget of a [Handler].
type Settings struct {
	// MaxRetries caps the number of retries after the initial attempt.
	// Zero means one try with no retries. Must not be negative.
	MaxRetries int

	// RetryableStatusCodes are HTTP status codes treated as transient when
	// carried by any cause exposing a StatusCode() int method.
	RetryableStatusCodes []int

	// RetryableErrors are sentinel errors whose presence anywhere in the
	// cause chain makes the failure transient.
	RetryableErrors []error

	// RetryableMessages are substrings; a cause whose message contains any
	// of them is transient.
	RetryableMessages []string

	// RetryPredicate is consulted for every cause, additive to the sets
	// above. May be nil.
	RetryPredicate func(error) bool
}

// DefaultSettings returns the retry configuration used when none is given:
// three retries of the usual transient gateway codes, unexpected-EOF and
// socket-level failures, and the "protocol error:" responses produced by bad
// data on the wire.
func DefaultSettings() Settings {
	return Settings{
		MaxRetries:           3,
		RetryableStatusCodes: []int{500, 502, 503},
		RetryableErrors: []error{
			io.ErrUnexpectedEOF,
			syscall.ECONNRESET,
			syscall.EPIPE,
			os.ErrDeadlineExceeded,
		},
		RetryableMessages: []string{"protocol error:"},
		RetryPredicate:    IsTransportError,
	}
}

// IsTransportError reports whether err is a TLS handshake/record failure, a
// socket-level failure, or a network timeout. It is the default
// [Settings.RetryPredicate]; custom predicates that still want this behavior
// should call it themselves.
//
// Only err itself is examined. The handler already applies the predicate to
// every cause in the chain, and an unbounded unwrap here would defeat the
// handler's depth bound.
func IsTransportError(err error) bool {
	switch err.(type) {
	case tls.RecordHeaderError, *tls.CertificateVerificationError, tls.AlertError:
		return true
	case *net.OpError:
		return true
	}

	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}

	return false
}
