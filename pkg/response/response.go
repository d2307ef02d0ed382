package response

// Envelope is the error/response wrapper used by middleware.
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Error(code, message string, data any) Envelope {
	return Envelope{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func Success(message string, data any) Envelope {
	return Envelope{
		Code:    "OK",
		Message: message,
		Data:    data,
	}
}
