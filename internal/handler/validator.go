package handler

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidations installs the custom binding checks. The base64url
// tag guards the subscription key material: a key that does not decode
// would poison every future dispatch to that endpoint.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("base64url", isBase64URL)
}

func isBase64URL(fl validator.FieldLevel) bool {
	s := strings.TrimRight(fl.Field().String(), "=")
	if s == "" {
		return false
	}
	if _, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return true
	}
	_, err := base64.RawStdEncoding.DecodeString(s)
	return err == nil
}
