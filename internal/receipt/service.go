// Package receipt renders printable receipts for settled sessions.
package receipt

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/config"
	customerdomain "github.com/smallbiznis/cueledger/internal/customer/domain"
	orderdomain "github.com/smallbiznis/cueledger/internal/order/domain"
	sessiondomain "github.com/smallbiznis/cueledger/internal/session/domain"
	tabledomain "github.com/smallbiznis/cueledger/internal/table/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrSessionNotCompleted = apperr.Precondition("session_not_completed", "receipts are only available for completed sessions")

type Document struct {
	Filename string
	Content  []byte
}

type Params struct {
	fx.In

	Log         *zap.Logger
	SessionSvc  sessiondomain.Service
	TableSvc    tabledomain.Service
	CustomerSvc customerdomain.Service
	OrderSvc    orderdomain.Service
	Policy      *config.PolicyHolder `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	sessionSvc  sessiondomain.Service
	tableSvc    tabledomain.Service
	customerSvc customerdomain.Service
	orderSvc    orderdomain.Service
	policy      *config.PolicyHolder
}

func New(p Params) *Service {
	return &Service{
		log:         p.Log.Named("receipt.service"),
		sessionSvc:  p.SessionSvc,
		tableSvc:    p.TableSvc,
		customerSvc: p.CustomerSvc,
		orderSvc:    p.OrderSvc,
		policy:      p.Policy,
	}
}

func (s *Service) Session(ctx context.Context, act actor.Actor, sessionID snowflake.ID) (Document, error) {
	session, err := s.sessionSvc.Get(ctx, act, sessionID)
	if err != nil {
		return Document{}, err
	}
	completed, ok := session.State().(sessiondomain.CompletedSession)
	if !ok {
		return Document{}, ErrSessionNotCompleted
	}

	// Tables can be deleted once their sessions are settled.
	var tableName string
	table, err := s.tableSvc.Get(ctx, act, completed.TableID)
	switch {
	case err == nil:
		tableName = table.Name
	case errors.Is(err, tabledomain.ErrNotFound):
		tableName = completed.TableID.String()
	default:
		return Document{}, err
	}
	customer, err := s.customerSvc.Get(ctx, act, completed.CustomerID)
	if err != nil {
		return Document{}, err
	}
	orders, err := s.orderSvc.List(ctx, act, completed.ID)
	if err != nil {
		return Document{}, err
	}

	policy := s.policy.Get().Receipt
	data := Data{
		VenueName:        policy.VenueName,
		VenueAddress:     policy.VenueAddress,
		Currency:         policy.Currency,
		Location:         policy.Location(),
		SessionID:        completed.ID.String(),
		TableName:        tableName,
		CustomerName:     customer.Name,
		StartTime:        completed.StartTime,
		EndTime:          completed.EndTime,
		DurationMinutes:  completed.DurationMinutes,
		HourlyRate:       completed.HourlyRateAtStart,
		GameAmount:       completed.GameAmount,
		AdditionalAmount: completed.AdditionalAmount,
		TotalAmount:      completed.TotalAmount,
		CashbackUsed:     completed.CashbackUsed,
		PaidAmount:       completed.PaidAmount,
		DebtAmount:       completed.DebtAmount,
		PaymentType:      string(completed.PaymentType),
	}
	for _, order := range orders {
		data.Lines = append(data.Lines, Line{
			Description: order.ItemName,
			Qty:         order.Quantity,
			UnitPrice:   order.UnitPrice,
			Amount:      order.TotalPrice,
		})
	}

	content, err := Render(data)
	if err != nil {
		s.log.Error("failed to render receipt", zap.String("session_id", completed.ID.String()), zap.Error(err))
		return Document{}, apperr.Internal(err)
	}
	return Document{
		Filename: receiptFilename(tableName, completed.ID),
		Content:  content,
	}, nil
}

// receiptFilename slugs the table name so it is safe in a
// Content-Disposition header.
func receiptFilename(tableName string, sessionID snowflake.ID) string {
	if s := slug.Make(tableName); s != "" {
		return fmt.Sprintf("receipt-%s-%s.pdf", s, sessionID)
	}
	return fmt.Sprintf("receipt-%s.pdf", sessionID)
}
