package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidRequestError = "invalid_request"
	HttpStoreUnavailable    = "store_unavailable"
)

// ErrorResponse is the error response body of the report API.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
