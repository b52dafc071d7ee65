package handler

// Response is the envelope every JSON endpoint returns. The dashboard
// frontend switches on Status before touching Data.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: statusSuccess, Data: data}
}

func NewErrorResponse(message string) *Response {
	return &Response{Status: statusError, Message: message}
}
