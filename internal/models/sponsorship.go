package models

import (
	"time"
)

// SponsorshipRecord is the durable outcome of one sponsored operation:
// settled amounts and the refund leg. Rejections are never persisted, so
// every record describes an accepted operation. Amounts are decimal wei
// strings.
type SponsorshipRecord struct {
	ID string `json:"id" gorm:"primaryKey"` // UUID

	OperationHash string `json:"operation_hash" gorm:"size:66;uniqueIndex;not null"`
	Recipient     string `json:"recipient" gorm:"size:42;index"` // withdrawal recipient, also refund target

	WithdrawnValue string `json:"withdrawn_value" gorm:"not null;default:'0'"`
	FeeBPS         int64  `json:"fee_bps" gorm:"not null;default:0"`
	PromisedFee    string `json:"promised_fee" gorm:"not null;default:'0'"`

	// Settlement leg; zero until Settle runs.
	Settled           bool   `json:"settled" gorm:"not null;default:false"`
	OperationReverted bool   `json:"operation_reverted" gorm:"not null;default:false"`
	ActualCost        string `json:"actual_cost" gorm:"not null;default:'0'"`
	TotalCost         string `json:"total_cost" gorm:"not null;default:'0'"` // actual + post-settlement allowance
	Refund            string `json:"refund" gorm:"not null;default:'0'"`

	// Refund delivery is best-effort; a failure is recorded, never raised.
	RefundDelivered bool   `json:"refund_delivered" gorm:"not null;default:false"`
	RefundTxHash    string `json:"refund_tx_hash,omitempty" gorm:"size:66"`
	RefundError     string `json:"refund_error,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SponsorshipRecord) TableName() string {
	return "sponsorship_records"
}
