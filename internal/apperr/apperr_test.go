package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithMessageStillMatchesSentinel(t *testing.T) {
	sentinel := Validation("cashback_limit_exceeded", "cashback exceeds usage limit")
	detailed := sentinel.WithMessage("cashback exceeds usage limit: max %d", 30000)

	assert.True(t, errors.Is(detailed, sentinel))
	assert.Equal(t, "cashback exceeds usage limit: max 30000", detailed.Error())
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("close: %w", detailed)))
}

func TestDifferentCodesDoNotMatch(t *testing.T) {
	a := NotFound("table_not_found", "table not found")
	b := NotFound("customer_not_found", "customer not found")

	assert.False(t, errors.Is(a, b))
}

func TestInternalWrapsForeignErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)

	assert.Equal(t, KindInternal, KindOf(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "internal_error", CodeOf(err))

	domainErr := Conflict("balance_changed", "balance changed")
	assert.Same(t, domainErr, Internal(domainErr))
	assert.Nil(t, Internal(nil))
}
