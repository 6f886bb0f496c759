package mail

import (
	"bytes"
	"html/template"
)

const VerificationSubject = "Email Verification"

var verificationTmpl = template.Must(template.New("verification").
	Parse(`<h1>Hi {{.Name}},</h1><p>Your OTP is {{.Code}}</p>`))

// VerificationHTML renders the OTP email body with the user name escaped.
func VerificationHTML(name string, code int) string {
	var buf bytes.Buffer
	_ = verificationTmpl.Execute(&buf, struct {
		Name string
		Code int
	}{name, code})
	return buf.String()
}
