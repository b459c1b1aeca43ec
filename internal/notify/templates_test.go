package notify

import "testing"

func TestRenderVerificationBody(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		expected string
	}{
		{
			name:     "With name",
			userName: "alice smith",
			expected: "Hi Alice Smith, your verification code is: 123456",
		},
		{
			name:     "Whitespace name falls back",
			userName: "   ",
			expected: "Your verification code is: 123456",
		},
		{
			name:     "No name",
			userName: "",
			expected: "Your verification code is: 123456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := RenderVerificationBody("123456", tt.userName)
			if err != nil {
				t.Fatalf("RenderVerificationBody returned error: %v", err)
			}
			if body != tt.expected {
				t.Errorf("body = %q, want %q", body, tt.expected)
			}
		})
	}
}

func TestRenderResetPasswordBody(t *testing.T) {
	body, err := RenderResetPasswordBody("654321", "Bob")
	if err != nil {
		t.Fatalf("RenderResetPasswordBody returned error: %v", err)
	}
	if want := "Hi Bob, your password recovery code is: 654321"; body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}
