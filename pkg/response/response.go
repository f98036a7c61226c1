// Package response defines the JSON envelope every endpoint answers with.
package response

// Response is the envelope. Status is "success" or "error"; exactly one of
// Data and Error is populated.
type Response struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Success wraps data in a success envelope.
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error wraps a message in an error envelope.
func Error(statusCode int, message string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      message,
	}
}
