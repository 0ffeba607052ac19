package serverutils

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) Response {
	return Response{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// ErrorResponseWithData carries extra detail such as field errors.
func ErrorResponseWithData(code int, message string, data interface{}) Response {
	r := ErrorResponse(code, message)
	r.Data = data
	return r
}
