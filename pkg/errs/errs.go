// Package errs implements the pipeline's error taxonomy: configuration
// errors, profile errors, and data-integrity errors share one wrapper
// type, Typed, tagged with its kind; IsConfiguration/IsProfile/
// IsDataIntegrity find it anywhere in an error's Unwrap chain via
// errors.As, so a top-level handler can tell the kinds apart. Data-quality
// problems are tracked as counters rather than errors because the run
// continues past them.
package errs

import (
	"errors"
	"fmt"
)

type kind int

const (
	kindConfiguration kind = iota
	kindProfile
	kindDataIntegrity
)

// Typed wraps an underlying error with a taxonomy kind and a message.
type Typed struct {
	k    kind
	msg  string
	orig error
}

func (e *Typed) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

func (e *Typed) Unwrap() error { return e.orig }

func newTyped(k kind, orig error, format string, a ...interface{}) *Typed {
	return &Typed{k: k, orig: orig, msg: fmt.Sprintf(format, a...)}
}

// Configuration wraps a bad-path / bad-flag / out-of-range-option error.
func Configuration(orig error, format string, a ...interface{}) error {
	return newTyped(kindConfiguration, orig, format, a...)
}

// Profile wraps a profile-load or missing-hook error.
func Profile(orig error, format string, a ...interface{}) error {
	return newTyped(kindProfile, orig, format, a...)
}

// DataIntegrity wraps a fingerprint mismatch, negative distance, or other
// fatal structural corruption.
func DataIntegrity(orig error, format string, a ...interface{}) error {
	return newTyped(kindDataIntegrity, orig, format, a...)
}

func IsConfiguration(err error) bool { return hasKind(err, kindConfiguration) }
func IsProfile(err error) bool       { return hasKind(err, kindProfile) }
func IsDataIntegrity(err error) bool { return hasKind(err, kindDataIntegrity) }

func hasKind(err error, k kind) bool {
	var t *Typed
	return errors.As(err, &t) && t.k == k
}
