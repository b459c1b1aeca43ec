package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FormatErrors converts a binding error into client-facing detail messages.
// Validator errors become one message per failed field; anything else
// (malformed JSON, type mismatches) collapses to a single generic message.
func FormatErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{"request body is malformed"}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, messageFor(fieldError))
	}
	return messages
}

func messageFor(fieldError validator.FieldError) string {
	if custom := CustomMessage(fieldError.Field()); custom != nil {
		if message, ok := custom[fieldError.Tag()]; ok {
			return message
		}
	}
	return DefaultMessage(fieldError.Field(), fieldError.Tag())
}
