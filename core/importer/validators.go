package importer

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	examTypeTag  = "examtype"
	examTypeText = "unknown exam type"

	modeTag  = "mode"
	modeText = "mode must be attendance or marks"
)

// InitValidators registers the import validators and their error messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(examTypeTag, examTypeValidation)
	core.RegisterCustomTranslation(validate, translator, examTypeTag, examTypeText)

	_ = validate.RegisterValidation(modeTag, modeValidation)
	core.RegisterCustomTranslation(validate, translator, modeTag, modeText)
}

func examTypeValidation(fl validator.FieldLevel) bool {
	_, err := LookupExamType(fl.Field().String())
	return err == nil
}

func modeValidation(fl validator.FieldLevel) bool {
	_, err := ParseMode(fl.Field().String())
	return err == nil
}
