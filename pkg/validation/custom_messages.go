package validation

// CustomMessage returns per-field overrides for messages where the generic
// wording reads poorly.
func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"Identifier": {
			"required": "identifier must not be empty",
		},
		"Email": {
			"required": "email must not be empty",
			"email":    "email must be a valid email address",
		},
		"Phone": {
			"required": "phone must not be empty",
		},
		"Password": {
			"required": "password must not be empty",
			"min":      "password must be at least 8 characters",
			"max":      "password must be at most 128 characters",
		},
		"NewPassword": {
			"required": "new password must not be empty",
			"min":      "new password must be at least 8 characters",
			"max":      "new password must be at most 128 characters",
		},
		"CurrentPassword": {
			"required": "current password must not be empty",
		},
		"ConfirmPassword": {
			"required": "password confirmation must not be empty",
		},
		"Code": {
			"required": "code must not be empty",
			"numeric":  "code must contain only digits",
		},
		"RefreshToken": {
			"required": "refresh token must not be empty",
		},
	}
	return customValidationMessages[field]
}
