package actor

import (
	"errors"
	"testing"

	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	assert.True(t, errors.Is(Actor{}.Validate(), apperr.ErrUnidentifiedActor))
	assert.NoError(t, New(10, 0).Validate())
}

func TestOperatorFallsBackToAccount(t *testing.T) {
	assert.EqualValues(t, 10, New(10, 0).Operator())
	assert.EqualValues(t, 20, New(10, 20).Operator())
}
