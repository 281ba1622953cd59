// Package apierrors defines the error taxonomy shared by the HTTP client,
// the API layers and the entity controller. Every failure is categorized so
// callers can branch on the kind of problem without string matching.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// CategoryConfiguration marks failures detected before any network call,
	// such as an unknown dictionary identifier.
	CategoryConfiguration = goerrors.Category("configuration")
	// CategoryAuthentication marks token refresh failures and HTTP 401.
	CategoryAuthentication = goerrors.Category("authentication")
	// CategoryAuthorization marks HTTP 403: the caller is known but not allowed.
	CategoryAuthorization = goerrors.Category("authorization")
	// CategoryConnectivity marks transport-level failures where no HTTP
	// response was received (DNS, refused connection, timeout).
	CategoryConnectivity = goerrors.Category("connectivity")
	// CategoryValidation marks 4xx responses other than 401/403.
	CategoryValidation = goerrors.Category("validation")
	// CategoryServer marks 5xx responses.
	CategoryServer = goerrors.Category("server")
	// CategoryWindowExpired marks the client-side hard-delete window guard.
	CategoryWindowExpired = goerrors.Category("window_expired")
)

// Configuration reports a client-side configuration problem.
func Configuration(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), CategoryConfiguration)
}

// Authentication wraps err as an authentication failure.
func Authentication(err error, message string) error {
	if err == nil {
		return goerrors.New(message, CategoryAuthentication)
	}
	return goerrors.Wrap(err, CategoryAuthentication, message)
}

// Connectivity wraps a transport error.
func Connectivity(err error) error {
	return goerrors.Wrap(err, CategoryConnectivity, "no response from server, check your connection")
}

// WindowExpired reports that the hard-delete permanence window has closed.
func WindowExpired() error {
	return goerrors.New("hard delete window has expired", CategoryWindowExpired)
}

// FromResponse builds the taxonomy error for a non-2xx HTTP response. The
// message is taken from the response body when one is present: JSON bodies
// are probed for the conventional message/error fields, anything else is
// used verbatim.
func FromResponse(status int, body []byte) error {
	msg := MessageFromBody(body)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}

	var cat goerrors.Category
	switch {
	case status == 401:
		cat = CategoryAuthentication
	case status == 403:
		cat = CategoryAuthorization
	case status >= 500:
		cat = CategoryServer
	default:
		cat = CategoryValidation
	}
	return goerrors.New(msg, cat).WithCode(status)
}

// MessageFromBody extracts a human-readable message from a response body.
// Returns "" when the body carries nothing usable.
func MessageFromBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var probe struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(trimmed), &probe); err == nil {
		if probe.Message != "" {
			return probe.Message
		}
		if probe.Error != "" {
			return probe.Error
		}
		return ""
	}
	return trimmed
}

// Message returns the user-facing message of err: the structured message
// when err carries one, err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ge *goerrors.Error
	if errors.As(err, &ge) && ge.Message != "" {
		return ge.Message
	}
	return err.Error()
}

// StatusOf returns the HTTP status attached to err, or 0 when err did not
// originate from an HTTP response.
func StatusOf(err error) int {
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return 0
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat goerrors.Category) bool {
	return goerrors.IsCategory(err, cat)
}
