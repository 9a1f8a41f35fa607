package dto

// ErrorResponse is the body of every non-2xx answer. Field is set when the
// failure belongs to one request field.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
