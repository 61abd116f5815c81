// Package actor carries the identity an operation runs on behalf of.
package actor

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/apperr"
)

// Actor identifies the owning account (tenant partition key) and the operator
// performing the change. Every ledger operation receives it explicitly.
type Actor struct {
	AccountID  snowflake.ID
	OperatorID snowflake.ID
}

func New(accountID, operatorID snowflake.ID) Actor {
	return Actor{AccountID: accountID, OperatorID: operatorID}
}

// Validate fails with an authorization error when no account is attached.
func (a Actor) Validate() error {
	if a.AccountID == 0 {
		return apperr.ErrUnidentifiedActor
	}
	return nil
}

// Operator returns the operator id, falling back to the account itself when
// the account owner operates the venue directly.
func (a Actor) Operator() snowflake.ID {
	if a.OperatorID != 0 {
		return a.OperatorID
	}
	return a.AccountID
}
