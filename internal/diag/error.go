package diag

import "fmt"

// Error is a structured, pass-boundary error: a registry code, a message
// (which carries any expected/actual detail) and, where known, the arena
// node of the offending construct. It holds no source position.
type Error struct {
	Code    string
	Message string
	Node    uint32 // arena NodeID of the offending node, if any
	HasNode bool
}

func (e *Error) Error() string {
	info, ok := GetErrorInfo(e.Code)
	if !ok {
		return e.Message
	}
	if e.HasNode {
		return fmt.Sprintf("[%s] %s (node #%d): %s", e.Code, info.Description, e.Node, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, info.Description, e.Message)
}

// Kind returns the coarse error kind for this error's code.
func (e *Error) Kind() Kind {
	info, _ := GetErrorInfo(e.Code)
	return info.Kind
}

// New builds an Error with no associated node.
func New(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AtNode builds an Error tagged with the offending arena node.
func AtNode(code string, node uint32, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Node: node, HasNode: true}
}
