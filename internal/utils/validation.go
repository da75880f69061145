package contextutils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// IsValidEmail reports whether the address passes go-playground/validator's
// email check. Used to reject malformed addresses before hitting the
// identity provider.
func IsValidEmail(email string) bool {
	return validate.Var(email, "email") == nil
}
