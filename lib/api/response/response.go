package response

import "refgate/lib/clock"

// Error codes carried by failed responses so API clients can branch without parsing messages.
const (
	CodeUnauthorized = "unauthorized"
	CodeBadRequest   = "bad_request"
	CodeNotFound     = "not_found"
	CodeInternal     = "internal"
)

type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success"`
	Code          string      `json:"code,omitempty"`
	StatusMessage string      `json:"status_message"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

func Error(code, message string) Response {
	return Response{
		Success:       false,
		Code:          code,
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}
