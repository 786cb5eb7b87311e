// internal/validator/validator.go
package validator

import (
	"regexp"

	"masjid-collection/internal/domain"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var nonSpace = regexp.MustCompile(`\S`)

func init() {
	Validate = validator.New()

	// месяц в формате "2024-12"
	_ = Validate.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseYearMonth(fl.Field().String())
		return err == nil
	})

	// строка не пустая и не только пробелы
	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonSpace.MatchString(fl.Field().String())
	})

	_ = Validate.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		m := fl.Field().Int()
		return m >= 1 && m <= 12
	})

	// "", "all" or one of the payment statuses
	_ = Validate.RegisterValidation("statusfilter", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseStatusFilter(fl.Field().String())
		return err == nil
	})
}
