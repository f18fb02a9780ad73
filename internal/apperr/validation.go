package apperr

import "strings"

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists field errors in the order they were checked.
type ValidationError struct {
	Fields []FieldError
}

var ErrValidation = &ValidationError{}

func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (v *ValidationError) Add(field, message string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: message})
}

func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// First returns the first failing field.
func (v *ValidationError) First() (FieldError, bool) {
	if v.Empty() {
		return FieldError{}, false
	}
	return v.Fields[0], true
}

// Field returns the message for name, or "".
func (v *ValidationError) Field(name string) string {
	if v == nil {
		return ""
	}
	for _, f := range v.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

func (v *ValidationError) Error() string {
	if v.Empty() {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (v *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}
