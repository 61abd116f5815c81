package tracing

import (
	"errors"
	"testing"

	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsUnknownKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/sessions/:id"),
		attribute.String("customer.phone", "0812"),
	)

	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorKeepsOnlyCode(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New(`duplicate key "0812"`)), "internal_error")
	assert.EqualError(t, SafeError(apperr.Conflict("table_occupied", "table occupied")), "table_occupied")
}
