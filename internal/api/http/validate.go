package http

import (
	"github.com/go-playground/validator/v10"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
)

var validate = validator.New()

func checkStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request", err)
	}
	return nil
}
