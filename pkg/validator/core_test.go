package validator_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/validator"
)

func TestValidationErrors_Error(t *testing.T) {
	t.Run("returns default message when no errors", func(t *testing.T) {
		var errs validator.ValidationErrors
		assert.Equal(t, "validation failed", errs.Error())
	})

	t.Run("joins field messages", func(t *testing.T) {
		errs := validator.ValidationErrors{
			{Field: "title", Message: "field is required"},
			{Field: "priority", Message: "must be one of: [low]"},
		}
		assert.Equal(t, "validation failed: title: field is required; priority: must be one of: [low]", errs.Error())
	})
}

func TestValidationErrors_Accessors(t *testing.T) {
	var errs validator.ValidationErrors
	errs.Add(validator.ValidationError{Field: "title", Message: "a"})
	errs.Add(validator.ValidationError{Field: "body", Message: "b"})
	errs.Add(validator.ValidationError{Field: "title", Message: "c"})

	assert.True(t, errs.Has("title"))
	assert.False(t, errs.Has("missing"))
	assert.Equal(t, []string{"a", "c"}, errs.Get("title"))
	assert.Equal(t, []string{"title", "body"}, errs.Fields())
	assert.Equal(t, map[string][]string{"title": {"a", "c"}, "body": {"b"}}, errs.Map())
	assert.False(t, errs.IsEmpty())
}

func TestApply(t *testing.T) {
	t.Run("nil when all rules pass", func(t *testing.T) {
		err := validator.Apply(
			validator.Required("title", "hello"),
			validator.MaxLen("title", "hello", 10),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failing rule", func(t *testing.T) {
		err := validator.Apply(
			validator.Required("title", "  "),
			validator.MaxLen("body", "too long", 3),
			validator.Required("ok", "x"),
		)
		require.Error(t, err)
		errs := validator.ExtractValidationErrors(err)
		require.Len(t, errs, 2)
		assert.Equal(t, []string{"title", "body"}, errs.Fields())
	})

	t.Run("matches sentinel through wrapping", func(t *testing.T) {
		err := validator.Apply(validator.Required("title", ""))
		wrapped := fmt.Errorf("create: %w", err)
		assert.True(t, errors.Is(wrapped, validator.ErrValidationFailed))
		assert.True(t, validator.IsValidationError(wrapped))
		assert.NotNil(t, validator.ExtractValidationErrors(wrapped))
	})

	t.Run("plain errors are not validation errors", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, validator.IsValidationError(err))
		assert.Nil(t, validator.ExtractValidationErrors(err))
		assert.Nil(t, validator.ExtractValidationErrors(nil))
	})
}
