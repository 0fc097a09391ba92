package errs

import (
	"net/http"
)

// Codes used by the authentication flow. The dashboard logs out on
// UNAUTHORIZED and FORBIDDEN alike, but keeps the login form open on
// INVALID_CREDENTIALS.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenMissing       = "UNAUTHORIZED"
	CodeTokenInvalid       = "FORBIDDEN"
	CodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
)

func statusCode(status int) string {
	return MakeUpperCaseWithUnderscores(http.StatusText(status))
}

// NewUnauthorizedError creates a 401 Unauthorized HTTPError.
func NewUnauthorizedError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     statusCode(http.StatusUnauthorized),
		Message:  message,
		Status:   http.StatusUnauthorized,
		Override: override,
	}
}

// NewInvalidCredentialsError is the 401 returned by /login.
func NewInvalidCredentialsError() *HTTPError {
	return &HTTPError{
		Code:     CodeInvalidCredentials,
		Message:  "Credenciales incorrectas",
		Status:   http.StatusUnauthorized,
		Override: true,
	}
}

// NewForbiddenError creates a 403 Forbidden HTTPError.
func NewForbiddenError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     statusCode(http.StatusForbidden),
		Message:  message,
		Status:   http.StatusForbidden,
		Override: override,
	}
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// code replaces the default BAD_REQUEST when non-nil; errors carries
// field-level validation failures.
func NewBadRequestError(message string, override bool, code *string, errors []FieldError, action *Action) *HTTPError {
	formattedCode := statusCode(http.StatusBadRequest)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusBadRequest,
		Override: override,
		Errors:   errors,
		Action:   action,
	}
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	formattedCode := statusCode(http.StatusNotFound)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusNotFound,
		Override: override,
	}
}

// NewTooManyRequestsError creates a 429 used by the login throttle.
func NewTooManyRequestsError(message string) *HTTPError {
	return &HTTPError{
		Code:     CodeTooManyAttempts,
		Message:  message,
		Status:   http.StatusTooManyRequests,
		Override: true,
	}
}

// NewInternalServerError creates a generic 500. The message never carries
// the underlying cause; that only goes to the logs.
func NewInternalServerError() *HTTPError {
	return &HTTPError{
		Code:     statusCode(http.StatusInternalServerError),
		Message:  http.StatusText(http.StatusInternalServerError),
		Status:   http.StatusInternalServerError,
		Override: false,
	}
}

// ValidationError converts a generic validation error into a 400.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), false, nil, nil, nil)
}
