package response

import "github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Category   string      `json:"category,omitempty"` // machine-readable error category
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// FromError maps a typed service error to (status, body) via the error taxonomy.
func FromError(err error) (int, Response) {
	status, category, msg := apperror.MapToHTTPStatus(err)
	return status, Response{
		Status:     "error",
		StatusCode: status,
		Error:      msg,
		Category:   category,
	}
}
