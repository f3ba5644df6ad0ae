package contact

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	MaxNameLen    = 200
	MaxEmailLen   = 254
	MaxMessageLen = 5000
)

// Submission is one filled-in contact form.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Normalize trims surrounding whitespace from every field.
func (s Submission) Normalize() Submission {
	return Submission{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Message: strings.TrimSpace(s.Message),
	}
}

// Validate returns validation.Errors keyed by json field name.
func (s Submission) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.RuneLength(1, MaxNameLen)),
		validation.Field(&s.Email, validation.Required, validation.RuneLength(3, MaxEmailLen), is.EmailFormat),
		validation.Field(&s.Message, validation.Required, validation.RuneLength(1, MaxMessageLen)),
	)
}

// FieldErrors flattens a Validate error into field -> message. Errors that
// are not per-field come back under "form".
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	out := map[string]string{}
	if ve, ok := err.(validation.Errors); ok {
		for field, fe := range ve {
			out[field] = fe.Error()
		}
		return out
	}
	out["form"] = err.Error()
	return out
}
