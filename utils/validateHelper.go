package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs validator tags on a workflow input and folds failures
// into the ValidationError taxonomy (caller-fixable, 4xx-equivalent).
func ValidateStruct(input any) error {
	if err := validate.Struct(input); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return NewValidationError("field %s failed on %s", f.Field(), f.Tag())
		}
		return NewValidationError("%v", err)
	}
	return nil
}
