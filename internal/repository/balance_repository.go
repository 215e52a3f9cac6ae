package repository

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sponsor-backend/internal/models"
	"sponsor-backend/internal/utils"
)

// ErrInsufficientBalance is returned when a withdrawal would overdraw the
// pooled fee balance.
var ErrInsufficientBalance = errors.New("pooled balance insufficient")

// BalanceRepository defines the interface for pooled-balance data access.
// Apply runs the read-modify-write under a row lock so concurrent admin
// calls cannot interleave.
type BalanceRepository interface {
	Get(ctx context.Context) (*big.Int, error)
	Apply(ctx context.Context, movement *models.BalanceMovement) (*big.Int, error)
	Movements(ctx context.Context, limit int) ([]*models.BalanceMovement, error)
}

type balanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository creates a new BalanceRepository instance
func NewBalanceRepository(db *gorm.DB) BalanceRepository {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) Get(ctx context.Context) (*big.Int, error) {
	var row models.PooledBalance
	err := r.db.WithContext(ctx).
		Where("id = ?", 1).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return utils.BigFromDecimal(row.Balance), nil
}

func (r *balanceRepository) Apply(ctx context.Context, movement *models.BalanceMovement) (*big.Int, error) {
	amount := utils.BigFromDecimal(movement.Amount)
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("movement amount must be positive, got %q", movement.Amount)
	}

	var after *big.Int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.PooledBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", 1).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.PooledBalance{ID: 1, Balance: "0"}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		current := utils.BigFromDecimal(row.Balance)
		switch movement.Direction {
		case models.BalanceDeposit:
			after = new(big.Int).Add(current, amount)
		case models.BalanceWithdraw:
			if current.Cmp(amount) < 0 {
				return ErrInsufficientBalance
			}
			after = new(big.Int).Sub(current, amount)
		default:
			return fmt.Errorf("unknown balance direction %q", movement.Direction)
		}

		row.Balance = after.String()
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}
	return after, nil
}

func (r *balanceRepository) Movements(ctx context.Context, limit int) ([]*models.BalanceMovement, error) {
	var rows []*models.BalanceMovement
	if limit < 1 || limit > 200 {
		limit = 50
	}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
