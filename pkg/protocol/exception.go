package protocol

import "fmt"

// ServerException describes an exception raised by a server view model.
type ServerException struct {
	ExceptionType string `json:"ExceptionType"`
	Message       string `json:"Message"`
}

// Error implements the error interface.
func (e *ServerException) Error() string {
	if e.Message == "" {
		return e.ExceptionType
	}
	return fmt.Sprintf("%s: %s", e.ExceptionType, e.Message)
}

// DetectException returns the exception carried by a decoded response
// payload, or nil if the payload is ordinary state. Both ExceptionType and
// Message must be present; either alone is a state field.
func DetectException(payload map[string]any) *ServerException {
	typ, ok := payload["ExceptionType"].(string)
	if !ok || typ == "" {
		return nil
	}
	raw, ok := payload["Message"]
	if !ok || raw == nil {
		return nil
	}
	msg, ok := raw.(string)
	if !ok {
		msg = fmt.Sprint(raw)
	}
	return &ServerException{ExceptionType: typ, Message: msg}
}
