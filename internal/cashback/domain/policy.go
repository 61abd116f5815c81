package domain

import (
	"github.com/shopspring/decimal"
)

// ZeroCapMode decides what a configured 0% usage cap means.
type ZeroCapMode string

const (
	// ZeroCapUnlimited falls back to the full balance when the percentage
	// ceiling computes to zero.
	ZeroCapUnlimited ZeroCapMode = "unlimited"
	// ZeroCapBlocked takes the ceiling literally, so 0% allows no spend.
	ZeroCapBlocked ZeroCapMode = "blocked"
)

var hundred = decimal.NewFromInt(100)

// EarnInput carries the final amounts of a settled session.
type EarnInput struct {
	PaidAmount  int64
	GameAmount  int64
	TotalAmount int64
	DebtAmount  int64
}

// BaseAmount is the share of the payment that accrues cashback. With extras
// excluded only the game-time share of the payment counts.
func BaseAmount(s Settings, in EarnInput) int64 {
	base := in.PaidAmount
	if !s.ApplyOnExtras && in.TotalAmount > 0 {
		q, _ := decimal.NewFromInt(in.PaidAmount).
			Mul(decimal.NewFromInt(in.GameAmount)).
			QuoRem(decimal.NewFromInt(in.TotalAmount), 0)
		base = q.IntPart()
	}
	return base
}

// ComputeEarn returns the cashback to credit for a settlement, or false when
// the program is off, the session left debt behind, or the threshold is not
// met.
func ComputeEarn(s Settings, in EarnInput) (int64, bool) {
	if !s.Enabled {
		return 0, false
	}

	base := BaseAmount(s, in)

	if !s.ApplyOnDebt && in.DebtAmount > 0 {
		return 0, false
	}

	amount := percentOf(base, s.Percentage)
	if amount <= 0 || amount < s.MinAmount {
		return 0, false
	}
	return amount, true
}

// SpendCeiling is the most cashback a session of total may redeem.
func SpendCeiling(s Settings, mode ZeroCapMode, balance, total int64) int64 {
	if balance <= 0 {
		return 0
	}
	maxByPercent := percentOf(total, s.MaxUsagePercent)
	if maxByPercent > 0 {
		return min(balance, maxByPercent)
	}
	if mode == ZeroCapBlocked {
		return 0
	}
	return balance
}

// ValidateSpend checks a redemption request against balance and ceiling.
func ValidateSpend(s Settings, mode ZeroCapMode, balance, total, requested int64) error {
	if requested < 0 {
		return ErrInvalidAmount
	}
	if requested > balance {
		return ErrInsufficientBalance.WithMessage("cashback exceeds balance: available %d", balance)
	}
	ceiling := SpendCeiling(s, mode, balance, total)
	if requested > ceiling {
		return ErrUsageLimitExceeded.WithMessage("cashback exceeds usage limit: max %d", ceiling)
	}
	return nil
}

// ValidateSettings enforces the configurable ranges.
func ValidateSettings(percentage decimal.Decimal, minAmount int64, maxUsagePercent decimal.Decimal) error {
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return ErrInvalidPercentage
	}
	if minAmount < 0 {
		return ErrInvalidMinAmount
	}
	if maxUsagePercent.IsNegative() || maxUsagePercent.GreaterThan(hundred) {
		return ErrInvalidMaxUsage
	}
	return nil
}

func percentOf(amount int64, pct decimal.Decimal) int64 {
	if amount <= 0 || pct.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Floor().IntPart()
}
