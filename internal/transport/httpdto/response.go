package httpdto

import notes_errors "studynotes/pkg/errors"

// Response is the envelope every JSON endpoint answers with. Code is set
// only on failures and is one of the notes_errors codes.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

func NewErrorResponse(message, code string) Response[any] {
	return Response[any]{Error: message, Code: code}
}

// ErrorResponseFor maps a pipeline error to its HTTP status and an envelope
// carrying the user-facing message. Causes never reach the client.
func ErrorResponseFor(err error) (int, Response[any]) {
	return notes_errors.HTTPStatus(err), NewErrorResponse(notes_errors.Message(err), notes_errors.Code(err))
}
