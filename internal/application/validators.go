package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-npp/internal/domain"
)

// registerCustomValidators adds the electoral validation rules used by
// scenario struct tags.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("jurisdiction", validateJurisdiction); err != nil {
		return fmt.Errorf("failed to register jurisdiction validator: %w", err)
	}
	if err := v.RegisterValidation("electionyear", validateElectionYear); err != nil {
		return fmt.Errorf("failed to register electionyear validator: %w", err)
	}
	return nil
}

// validateJurisdiction accepts the eight state and territory abbreviations,
// case-insensitively.
func validateJurisdiction(fl validator.FieldLevel) bool {
	_, err := domain.ParseJurisdiction(fl.Field().String())
	return err == nil
}

// validateElectionYear accepts a four-digit year. Formats with tagged
// preference columns exist from 2016 onward; anything earlier cannot be a
// valid input to this pipeline.
func validateElectionYear(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var year int
	n, err := fmt.Sscanf(value, "%d", &year)
	return err == nil && n == 1 && len(value) == 4 && year >= 2016
}
