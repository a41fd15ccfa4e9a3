package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

var (
	roleTag  = "role"
	roleText = "must be one of: student, teacher, curator"
)

// InitValidators registers the user-specific validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

// roleValidation only allows values of the closed role enumeration.
func roleValidation(fl validator.FieldLevel) bool {
	return policy.IsValidRole(fl.Field().String())
}
