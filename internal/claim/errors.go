package claim

import "fmt"

// ValidationError rejects a whole submission because of a bad or missing
// upload. Filename is empty when the submission itself is empty.
type ValidationError struct {
	Filename string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Filename == "" {
		return e.Reason
	}
	return fmt.Sprintf("file %q %s", e.Filename, e.Reason)
}

// FormatError marks a form field that is present but not numeric.
type FormatError struct {
	Field string
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("field %q: %q is not a number", e.Field, e.Value)
}

// AuthError covers bad credentials and disallowed sign-in emails.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }
