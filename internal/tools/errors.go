package tools

import (
	"encoding/json"
	"errors"
)

// Tool registry errors.
var (
	// ErrToolNotFound is returned when a tool is not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolExecuteNil is returned when a tool has no execute function.
	ErrToolExecuteNil = errors.New("tool execute function cannot be nil")

	// ErrToolAlreadyRegistered is returned when registering a duplicate.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrDataTagInUse is returned when two tools claim the same data tag.
	ErrDataTagInUse = errors.New("data tag already in use")

	// ErrInvalidSchema is returned when a tool schema does not compile.
	ErrInvalidSchema = errors.New("invalid tool schema")

	// ErrInvalidArgs is returned when arguments fail schema validation.
	ErrInvalidArgs = errors.New("invalid arguments")
)

// ErrorJSON renders err as a {"error": "..."} payload.
func ErrorJSON(err error) string {
	b, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return `{"error":"internal error"}`
	}
	return string(b)
}
