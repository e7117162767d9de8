// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package validation provides struct validation using go-playground/validator
// v10 behind a thread-safe singleton, plus custom validators for the vote
// and trending request shapes (votedirection, timeframe, synctype, slug).
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/trending"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// ValidationError is one failed field.
type ValidationError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// RequestValidationError collects per-field failures for one request.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual field failures.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		messages[i] = err.Message
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the singleton instance with custom validators
// registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		must := func(tag string, fn validator.Func) {
			if err := validate.RegisterValidation(tag, fn); err != nil {
				panic(fmt.Sprintf("register validator %q: %v", tag, err))
			}
		}
		must("votedirection", func(fl validator.FieldLevel) bool {
			return models.VoteDirection(fl.Field().String()).Valid()
		})
		must("timeframe", func(fl validator.FieldLevel) bool {
			_, err := trending.ParseTimeframe(fl.Field().String())
			return err == nil
		})
		must("synctype", func(fl validator.FieldLevel) bool {
			return models.SyncType(fl.Field().String()).Valid()
		})
		must("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct validates s and returns nil or the collected field
// failures.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{errors: []ValidationError{{
			Field:   "unknown",
			Tag:     "unknown",
			Message: err.Error(),
		}}}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			Field:   fieldErr.Field(),
			Tag:     fieldErr.Tag(),
			Param:   fieldErr.Param(),
			Message: fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag()),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}
