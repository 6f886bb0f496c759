package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationHTML(t *testing.T) {
	assert.Equal(t, "<h1>Hi Alice,</h1><p>Your OTP is 123456</p>", VerificationHTML("Alice", 123456))
	assert.Equal(t, "<h1>Hi &lt;b&gt;Eve&lt;/b&gt;,</h1><p>Your OTP is 654321</p>", VerificationHTML("<b>Eve</b>", 654321))
	assert.Equal(t, "Email Verification", VerificationSubject)
}
