/*
Package errs provides custom error types and application-level error code constants.

These error codes identify client-side session failures (validation, registration,
transport, bootstrap fetch) and the request errors returned by the relay server.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Session Errors
const (
	// ErrValidation indicates that local input (username, outbound text) was rejected before any network call.
	ErrValidation = 2001

	// ErrRegistration indicates that the registration endpoint answered with a non-success response.
	ErrRegistration = 2002

	// ErrTransport indicates that the realtime channel could not be dialed or written to.
	ErrTransport = 2003

	// ErrFetch indicates that a bootstrap history or roster fetch failed.
	ErrFetch = 2004

	// ErrNotActive indicates that an operation requiring an active session was attempted without one.
	ErrNotActive = 2005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general internal error.
	ErrUnknown = 5000
)
