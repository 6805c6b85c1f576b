package service

// Auth error codes returned to clients
const (
	CodeMissingFields      = "missing-fields"
	CodePasswordMismatch   = "passwords-mismatch"
	CodeWeakPassword       = "weak-password"
	CodeInvalidEmail       = "invalid-email"
	CodeEmailAlreadyInUse  = "email-already-in-use"
	CodeWrongCredentials   = "wrong-credentials"
	CodeTooManyRequests    = "too-many-requests"
	CodeInvalidToken       = "invalid-token"
	CodeTokenExpired       = "token-expired"
	fallbackAuthErrMessage = "Authentication failed. Please try again"
)

var authErrorMessages = map[string]string{
	CodeMissingFields:     "All fields are required",
	CodePasswordMismatch:  "Passwords do not match",
	CodeWeakPassword:      "Password must be at least 6 characters",
	CodeInvalidEmail:      "The email format is not valid",
	CodeEmailAlreadyInUse: "This email is already registered",
	CodeWrongCredentials:  "Incorrect email or password",
	CodeTooManyRequests:   "Too many failed attempts. Try again later",
	CodeInvalidToken:      "Your session is no longer valid. Please sign in again",
	CodeTokenExpired:      "Your session has expired. Please sign in again",
}

// AuthErrorMessage maps an auth error code to a user-facing message.
// Unknown codes get a generic message.
func AuthErrorMessage(code string) string {
	if msg, ok := authErrorMessages[code]; ok {
		return msg
	}
	return fallbackAuthErrMessage
}

// AuthError is an account error with a stable code
type AuthError struct {
	Code string
}

func (e *AuthError) Error() string {
	return AuthErrorMessage(e.Code)
}

var (
	ErrMissingFields      = &AuthError{Code: CodeMissingFields}
	ErrPasswordMismatch   = &AuthError{Code: CodePasswordMismatch}
	ErrWeakPassword       = &AuthError{Code: CodeWeakPassword}
	ErrInvalidEmail       = &AuthError{Code: CodeInvalidEmail}
	ErrEmailAlreadyInUse  = &AuthError{Code: CodeEmailAlreadyInUse}
	ErrInvalidCredentials = &AuthError{Code: CodeWrongCredentials}
	ErrTooManyRequests    = &AuthError{Code: CodeTooManyRequests}
	ErrInvalidToken       = &AuthError{Code: CodeInvalidToken}
	ErrTokenExpired       = &AuthError{Code: CodeTokenExpired}
)
