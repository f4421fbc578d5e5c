package midi

import "fmt"

// EncodingError reports a description that cannot be written as a valid SMF.
// Index is the position in the melody for note fields and -1 otherwise.
type EncodingError struct {
	Field  string
	Index  int
	Value  any
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("midi: melody[%d].%s = %v: %s", e.Index, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("midi: %s = %v: %s", e.Field, e.Value, e.Reason)
}

func fieldError(field string, value any, reason string) *EncodingError {
	return &EncodingError{Field: field, Index: -1, Value: value, Reason: reason}
}

func noteError(index int, field string, value any, reason string) *EncodingError {
	return &EncodingError{Field: field, Index: index, Value: value, Reason: reason}
}
