package resource

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
)

var (
	eventStatusTag  = "eventstatus"
	eventStatusText = "{0} must be one of Draft, Planned, Published, Ongoing, Completed, Cancelled, Archived"
)

// InitValidators registers the resource validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(eventStatusTag, eventStatusValidation)
	core.RegisterCustomTranslation(validate, translator, eventStatusTag, eventStatusText)
}

func eventStatusValidation(fl validator.FieldLevel) bool {
	return EventStatus(fl.Field().String()).Valid()
}
