package validator

import (
	"fmt"
	"strings"
	"time"
)

// Required validates that a string is not empty after trimming whitespace.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len([]rune(value)) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

// RequiredSlice validates that a slice has at least one element.
func RequiredSlice[T any](field string, value []T) Rule {
	return Rule{
		Check: func() bool { return len(value) > 0 },
		Error: ValidationError{Field: field, Message: "must contain at least one item"},
	}
}

func MaxLenSlice[T any](field string, value []T, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must contain at most %d items", max)},
	}
}

// InList validates that value is one of allowed.
func InList[T comparable](field string, value T, allowed []T) Rule {
	return Rule{
		Check: func() bool {
			for _, a := range allowed {
				if value == a {
					return true
				}
			}
			return false
		},
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be one of: %v", allowed)},
	}
}

// EachInList validates that every element of values is one of allowed.
func EachInList[T comparable](field string, values []T, allowed []T) Rule {
	set := make(map[T]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return Rule{
		Check: func() bool {
			for _, v := range values {
				if _, ok := set[v]; !ok {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: fmt.Sprintf("every item must be one of: %v", allowed)},
	}
}

// IntBetween validates min <= value <= max.
func IntBetween(field string, value, min, max int) Rule {
	return Rule{
		Check: func() bool { return value >= min && value <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be between %d and %d", min, max)},
	}
}

// TimeOfDay validates a 24h "HH:MM" clock value.
func TimeOfDay(field, value string) Rule {
	return Rule{
		Check: func() bool {
			_, err := time.Parse("15:04", value)
			return err == nil && len(value) == 5
		},
		Error: ValidationError{Field: field, Message: "must be a time in HH:MM format"},
	}
}

// Timezone validates an IANA zone name loadable by time.LoadLocation.
func Timezone(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if value == "" {
				return false
			}
			_, err := time.LoadLocation(value)
			return err == nil
		},
		Error: ValidationError{Field: field, Message: "must be a valid IANA timezone"},
	}
}

// Weekdays validates that every entry is in 0..6 (Sunday is 0).
func Weekdays(field string, days []int) Rule {
	return Rule{
		Check: func() bool {
			for _, d := range days {
				if d < 0 || d > 6 {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "days must be between 0 (Sunday) and 6 (Saturday)"},
	}
}

// FutureTime validates that a non-nil time lies after now. A nil value passes.
func FutureTime(field string, value *time.Time, now time.Time) Rule {
	return Rule{
		Check: func() bool { return value == nil || value.After(now) },
		Error: ValidationError{Field: field, Message: "must be in the future"},
	}
}

// When applies rule only if cond holds.
func When(cond bool, rule Rule) Rule {
	if cond {
		return rule
	}
	return Rule{Check: func() bool { return true }}
}
