package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Message bodies are plain-text templates with the sprig function set
// available, so deployments can override them with richer formatting.
const (
	verificationBodyTemplate  = "{{ with trim .Name }}Hi {{ title . }}, your{{ else }}Your{{ end }} verification code is: {{ .Code }}"
	resetPasswordBodyTemplate = "{{ with trim .Name }}Hi {{ title . }}, your{{ else }}Your{{ end }} password recovery code is: {{ .Code }}"
)

type codePayload struct {
	Code string
	Name string
}

var (
	verificationTmpl  = template.Must(template.New("verification").Funcs(sprig.TxtFuncMap()).Parse(verificationBodyTemplate))
	resetPasswordTmpl = template.Must(template.New("reset_password").Funcs(sprig.TxtFuncMap()).Parse(resetPasswordBodyTemplate))
)

// RenderVerificationBody renders the verification message for a code.
func RenderVerificationBody(code, name string) (string, error) {
	return render(verificationTmpl, codePayload{Code: code, Name: name})
}

// RenderResetPasswordBody renders the password recovery message for a code.
func RenderResetPasswordBody(code, name string) (string, error) {
	return render(resetPasswordTmpl, codePayload{Code: code, Name: name})
}

func render(tmpl *template.Template, payload codePayload) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
