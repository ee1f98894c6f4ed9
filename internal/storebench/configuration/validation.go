package configuration

import (
	"github.com/go-playground/validator/v10"

	commonconfig "github.com/armadaproject/storebench/internal/common/config"
)

func (c StorebenchConfig) Validate() error {
	validate := validator.New()
	err := validate.Struct(c)
	commonconfig.LogValidationErrors(err)
	return err
}
