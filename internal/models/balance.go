package models

import (
	"time"
)

// BalanceDirection tags a pooled-balance ledger movement.
type BalanceDirection string

const (
	BalanceDeposit  BalanceDirection = "deposit"
	BalanceWithdraw BalanceDirection = "withdraw"
)

// PooledBalance is the single-row running total of the sponsor's fee pool,
// in decimal wei. Movements append BalanceMovement rows in the same
// transaction that updates this total.
type PooledBalance struct {
	ID        uint64    `json:"id" gorm:"primaryKey"` // always 1
	Balance   string    `json:"balance" gorm:"not null;default:'0'"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PooledBalance) TableName() string {
	return "pooled_balance"
}

// BalanceMovement is one audited deposit or withdrawal against the pool.
type BalanceMovement struct {
	ID        uint64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Direction BalanceDirection `json:"direction" gorm:"size:16;not null"`
	Amount    string           `json:"amount" gorm:"not null"`
	Actor     string           `json:"actor" gorm:"size:42"` // admin identity that moved funds
	TxHash    string           `json:"tx_hash,omitempty" gorm:"size:66"`
	CreatedAt time.Time        `json:"created_at"`
}

func (BalanceMovement) TableName() string {
	return "balance_movements"
}
