package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("semver", isSemver)
}

// isSemver accepts versions like 1.4.0, with or without a leading v.
func isSemver(fl validator.FieldLevel) bool {
	_, err := semver.NewVersion(strings.TrimPrefix(fl.Field().String(), "v"))
	return err == nil
}

// ruleMessage checks value against the field's rule tags and returns the
// first failure as an operator-facing message.
func ruleMessage(f Field, value any) string {
	if f.Rules == "" {
		return ""
	}
	err := validate.Var(value, f.Rules)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return f.label() + " is invalid"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "email":
		return f.label() + " must be a valid email address"
	case "url", "http_url":
		return f.label() + " must be a valid URL"
	case "semver":
		return f.label() + " must be a version like 1.0.0"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", f.label(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", f.label(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", f.label(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s failed on '%s'", f.label(), fe.Tag())
}
