package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mantralabs/japa-api/internal/ads"
	"github.com/mantralabs/japa-api/internal/dates"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("calendar_date", validateCalendarDate); err != nil {
		panic(fmt.Sprintf("failed to register calendar_date validator: %v", err))
	}
	if err := Validate.RegisterValidation("ad_origin", validateAdOrigin); err != nil {
		panic(fmt.Sprintf("failed to register ad_origin validator: %v", err))
	}
}

// validateCalendarDate validates that a string is a YYYY-MM-DD calendar date
func validateCalendarDate(fl validator.FieldLevel) bool {
	return dates.Valid(fl.Field().String())
}

// validateAdOrigin validates that a string names a known ad placement origin
func validateAdOrigin(fl validator.FieldLevel) bool {
	return ads.ValidOrigin(ads.Origin(fl.Field().String()))
}

// ValidateCalendarDate validates a YYYY-MM-DD date string value
func ValidateCalendarDate(value string) error {
	if !dates.Valid(value) {
		return fmt.Errorf("invalid date: %s (must be YYYY-MM-DD)", value)
	}
	return nil
}

// ValidateAdOrigin validates an ad placement origin string value
func ValidateAdOrigin(value string) error {
	if !ads.ValidOrigin(ads.Origin(value)) {
		return fmt.Errorf("invalid origin: %s", value)
	}
	return nil
}
