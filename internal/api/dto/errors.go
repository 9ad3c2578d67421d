package dto

// APIError represents a structured error response.
// All error responses from the API use this format for consistency.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Detail carries machine-readable context for errors where the message
	// alone is not enough for the client to act on.
	Detail map[string]string `json:"detail,omitempty"`
}

// Common error codes
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeConflict      = "conflict"
	ErrCodeInternalError = "internal_error"
	ErrCodeValidation    = "validation_error"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// ConflictError creates a conflict error response.
func ConflictError(message string) APIError {
	return NewAPIError(ErrCodeConflict, message)
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError creates a validation error response.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// SplitMismatchError creates a validation error for a split whose lines do
// not sum to the receipt gross. The signed difference is carried in detail
// so the split UI can show how far off the lines are without parsing prose.
func SplitMismatchError(message, grossAmount, splitTotal, difference string) APIError {
	e := NewAPIError(ErrCodeValidation, message)
	e.Detail = map[string]string{
		"gross_amount": grossAmount,
		"split_total":  splitTotal,
		"difference":   difference,
	}
	return e
}
