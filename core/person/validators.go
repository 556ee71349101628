package person

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

var (
	roleTag  = "personrole"
	roleText = "invalid role"

	statusTag  = "personstatus"
	statusText = "invalid status"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, core.OneOf(AllRoles...))
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(statusTag, core.OneOf(AllStatuses...))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}
