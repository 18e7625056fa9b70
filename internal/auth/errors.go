package auth

import "errors"

// FormError is a failed form submission: Message goes on the form, Err is the cause.
type FormError struct {
	Err     error
	Message string
}

func (e *FormError) Error() string { return e.Err.Error() }

func (e *FormError) Unwrap() error { return e.Err }

// Message returns the text to show for err on the form.
func Message(err error) string {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Message
	}
	if err == nil {
		return ""
	}
	return MsgSomethingWrong
}
