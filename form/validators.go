package form

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-workout-tracker/model"
)

// Validator is a pure predicate over a field value with the message shown when
// it fails. Validate must not panic.
type Validator struct {
	Validate func(value string) bool
	Message  string
}

// FromRule adapts an ozzo-validation rule. Rules that skip empty values, like
// Match, accept the empty string.
func FromRule(rule validation.Rule, message string) Validator {
	return Validator{
		Message: message,
		Validate: func(value string) (ok bool) {
			defer func() {
				if recover() != nil {
					ok = false
				}
			}()
			return rule.Validate(value) == nil
		},
	}
}

// Required rejects the empty string.
func Required(message string) Validator {
	return FromRule(validation.Required, message)
}

// Link accepts the empty string and any value starting with http:// or https://.
func Link(message string) Validator {
	return FromRule(validation.Match(model.LinkPattern), message)
}

// Email only checks for an @, matching what the backend accepts as an address.
func Email(message string) Validator {
	return Validator{
		Message:  message,
		Validate: func(v string) bool { return strings.Contains(v, "@") },
	}
}

// MinLength counts runes. The empty string fails unless n is zero.
func MinLength(n int, message string) Validator {
	return Validator{
		Message:  message,
		Validate: func(v string) bool { return utf8.RuneCountInString(v) >= n },
	}
}

// Numeric accepts anything that parses as a number, and the empty string.
func Numeric(message string) Validator {
	return Validator{
		Message: message,
		Validate: func(v string) bool {
			v = strings.TrimSpace(v)
			if v == "" {
				return true
			}
			_, err := strconv.ParseFloat(v, 64)
			return err == nil
		},
	}
}

// Digits requires exactly n characters.
func Digits(n int, message string) Validator {
	return Validator{
		Message:  message,
		Validate: func(v string) bool { return utf8.RuneCountInString(v) == n },
	}
}

// OneOf accepts only the listed values.
func OneOf(message string, values ...string) Validator {
	allowed := slices.Clone(values)
	return Validator{
		Message:  message,
		Validate: func(v string) bool { return slices.Contains(allowed, v) },
	}
}
