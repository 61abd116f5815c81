package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePolicy(t *testing.T) {
	assert.NoError(t, ValidatePolicy(DefaultPolicy()))

	bad := DefaultPolicy()
	bad.Cashback.ZeroCapMode = "sometimes"
	assert.Error(t, ValidatePolicy(bad))

	bad = DefaultPolicy()
	bad.Cashback.ExpireBatchSize = 0
	assert.Error(t, ValidatePolicy(bad))

	bad = DefaultPolicy()
	bad.Receipt.Timezone = "Mars/Olympus"
	assert.Error(t, ValidatePolicy(bad))

	good := DefaultPolicy()
	good.Receipt.Timezone = "UTC"
	assert.NoError(t, ValidatePolicy(good))
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *PolicyHolder
	assert.Equal(t, DefaultPolicy(), holder.Get())

	custom := DefaultPolicy()
	custom.Cashback.ZeroCapMode = ZeroCapBlocked
	assert.Equal(t, ZeroCapBlocked, NewStaticPolicyHolder(custom).Get().Cashback.ZeroCapMode)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitList(" a:9092, ,b:9092 "))
	assert.Empty(t, splitList(""))
}
