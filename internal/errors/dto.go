package errors

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Status    int            `json:"status"`
	Message   string         `json:"message"`
	Reference string         `json:"reference"`
	Details   map[string]any `json:"details,omitempty"`
}
