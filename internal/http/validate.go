package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var labels = map[string]string{
	"cpassword": "Confirm Password",
	"browserId": "Browser ID",
	"otp":       "OTP",
}

var tagNamesOnce sync.Once

// useJSONFieldNames makes validator report fields by their json/form names.
func useJSONFieldNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func messageFor(fe validator.FieldError) string {
	l := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return l + " is required"
	case "email":
		return "Please enter a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", l, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", l, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", l, fe.Param())
	default:
		return l + " is invalid"
	}
}

// bind decodes the request into dst and answers 400 on failure.
func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBind(dst)
	if errors.Is(err, io.EOF) {
		// empty body: report missing fields instead of a decode error
		err = binding.Validator.ValidateStruct(dst)
	}
	if err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := make([]FieldError, 0, len(ve))
			for _, fe := range ve {
				out = append(out, FieldError{Field: fe.Field(), Message: messageFor(fe)})
			}
			fail(c, http.StatusBadRequest, out[0].Message, out)
			return false
		}
		fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

// OTPCode accepts the code as either a JSON string or a JSON number.
type OTPCode string

func (o *OTPCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = OTPCode(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*o = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*o = OTPCode(n.String())
	return nil
}
