package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AdditionalOrder is an ancillary line item billed on top of table time.
type AdditionalOrder struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null" json:"organization_id"`
	SessionID  snowflake.ID `gorm:"not null;index" json:"session_id"`
	ItemName   string       `gorm:"not null" json:"item_name"`
	Quantity   int64        `gorm:"not null" json:"quantity"`
	UnitPrice  int64        `gorm:"not null" json:"unit_price"`
	TotalPrice int64        `gorm:"not null" json:"total_price"`
	CreatedBy  snowflake.ID `gorm:"not null" json:"created_by"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (AdditionalOrder) TableName() string { return "additional_orders" }
