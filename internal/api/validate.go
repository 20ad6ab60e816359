package api

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"routeplan/internal/model"
)

type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newRequestValidator() *requestValidator {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
	return &requestValidator{validate: validate, trans: trans}
}

// planRequest checks field constraints and the matrix shape against the inline locations.
func (v *requestValidator) planRequest(req *model.PlanRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return errors.New(strings.Join(translateError(err, v.trans), "; "))
	}
	if len(req.Matrix) > 0 {
		if len(req.Locations) == 0 {
			return errors.New("matrix requires inline locations")
		}
		if !req.Matrix.Square(len(req.Locations)) {
			return errors.New("matrix must be square with one row per location")
		}
	}
	return nil
}

func translateError(err error, trans ut.Translator) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, e.Translate(trans))
	}
	return out
}
