package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"
)

// ErrorKind is the closed set of failure classes surfaced by the client.
type ErrorKind int

const (
	// KindResolution: a human reference (channel, person, message) did
	// not map to a backend entity.
	KindResolution ErrorKind = iota + 1
	// KindTransient: rate limiting, timeout or transport failure.
	KindTransient
	// KindPermanent: the target does not exist or is inaccessible.
	KindPermanent
	// KindConfiguration: credentials are missing, invalid or revoked.
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindResolution:
		return "resolution failure"
	case KindTransient:
		return "transient backend failure"
	case KindPermanent:
		return "permanent backend failure"
	case KindConfiguration:
		return "configuration failure"
	default:
		return "unknown failure"
	}
}

// Error carries the failure class together with the operation that hit it.
// Use errors.As to inspect it:
//
//	var wsErr *workspace.Error
//	if errors.As(err, &wsErr) && wsErr.Kind == workspace.KindResolution { ... }
type Error struct {
	Kind ErrorKind
	// Op is the backend method or client operation, e.g. "conversations.history".
	Op string
	// Ref is the reference or id the operation was about, if any.
	Ref string
	// Code is the backend error code, e.g. "channel_not_found".
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindResolution {
		return e.Err.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var wsErr *Error
	if errors.As(err, &wsErr) {
		return wsErr.Kind == kind
	}
	return false
}

func resolutionError(what, ref string) *Error {
	return &Error{
		Kind: KindResolution,
		Op:   "resolve",
		Ref:  ref,
		Err:  fmt.Errorf("could not find %s: %s", what, ref),
	}
}

var permanentCodes = map[string]bool{
	"channel_not_found":  true,
	"not_in_channel":     true,
	"is_archived":        true,
	"message_not_found":  true,
	"thread_not_found":   true,
	"user_not_found":     true,
	"users_not_found":    true,
	"invalid_name":       true,
	"already_reacted":    true,
	"too_many_emoji":     true,
	"too_many_reactions": true,
}

var configurationCodes = map[string]bool{
	"invalid_auth":           true,
	"not_authed":             true,
	"account_inactive":       true,
	"token_revoked":          true,
	"token_expired":          true,
	"missing_scope":          true,
	"not_allowed_token_type": true,
}

// transientCodes are server-side or throttling failures worth retrying later.
var transientCodes = map[string]bool{
	"internal_error":      true,
	"fatal_error":         true,
	"service_unavailable": true,
	"request_timeout":     true,
	"ratelimited":         true,
	"rate_limited":        true,
}

// notFoundCodes are the codes read paths treat as an empty conversation.
var notFoundCodes = map[string]bool{
	"channel_not_found": true,
	"not_in_channel":    true,
}

// errorCode extracts the backend error code, if err carries one.
func errorCode(err error) string {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err
	}
	var slackErrPtr *slack.SlackErrorResponse
	if errors.As(err, &slackErrPtr) && slackErrPtr != nil {
		return slackErrPtr.Err
	}
	if err != nil && (permanentCodes[err.Error()] || configurationCodes[err.Error()] || transientCodes[err.Error()]) {
		return err.Error()
	}
	return ""
}

func classify(err error) ErrorKind {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	code := errorCode(err)
	switch {
	case configurationCodes[code]:
		return KindConfiguration
	case transientCodes[code]:
		return KindTransient
	case code != "":
		return KindPermanent
	}
	// Anything without a backend code is a transport-level failure.
	return KindTransient
}

// wrap annotates a backend error with its class. A nil err stays nil.
func wrap(op, ref string, err error) error {
	if err == nil {
		return nil
	}
	var wsErr *Error
	if errors.As(err, &wsErr) {
		return err
	}
	return &Error{
		Kind: classify(err),
		Op:   op,
		Ref:  ref,
		Code: errorCode(err),
		Err:  err,
	}
}

func isConversationNotFound(err error) bool {
	return notFoundCodes[errorCode(err)]
}
