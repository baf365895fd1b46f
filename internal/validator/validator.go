// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"pocketbook/internal/models"
	"pocketbook/internal/period"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn installs the custom tags on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("period_type", validatePeriodType)
	_ = v.RegisterValidation("transaction_kind", validateTransactionKind)
	_ = v.RegisterValidation("calendar_date", validateCalendarDate)
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
}

func validatePeriodType(fl validator.FieldLevel) bool {
	return period.Type(fl.Field().String()).Valid()
}

func validateTransactionKind(fl validator.FieldLevel) bool {
	return models.TransactionKind(fl.Field().String()).Valid()
}

// validateCalendarDate accepts YYYY-MM-DD strings only.
func validateCalendarDate(fl validator.FieldLevel) bool {
	_, err := period.ParseDate(fl.Field().String())
	return err == nil
}

// decimalValue exposes decimal.Decimal fields to the builtin numeric tags
// (gt, gte, ...) as float64.
func decimalValue(field reflect.Value) interface{} {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}
