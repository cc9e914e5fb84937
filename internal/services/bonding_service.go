package services

import (
	"math/big"
	"time"

	"github.com/rxtech-lab/amm-proxy/internal/models"
	"github.com/rxtech-lab/amm-proxy/internal/utils"
	"gorm.io/gorm"
)

// BondingService keeps the per-user ledger of time-locked reward entries and
// unlocks matured ones against claims. The sum of a user's bonded amounts is
// exactly the reward owed and not yet withdrawn.
type BondingService interface {
	// RecordBond appends a reward entry. startUnix is zero when trading has
	// not opened yet; the lock then starts at the configured opening date.
	RecordBond(userAddress string, amount *big.Int, bondingPeriodSec uint64, startUnix int64) error
	// Claim unlocks matured entries toward the requested amount, walking the
	// user's entries in insertion order. All-or-nothing: unless the full
	// amount can be covered by matured entries nothing is persisted.
	Claim(userAddress string, requested *big.Int, openingDate, now time.Time) error
	// ListByUser returns the user's entries in insertion order.
	ListByUser(userAddress string) ([]models.BondedRewardEntry, error)
}

type bondingService struct {
	db *gorm.DB
}

func NewBondingService(db *gorm.DB) BondingService {
	return &bondingService{db: db}
}

func (s *bondingService) RecordBond(userAddress string, amount *big.Int, bondingPeriodSec uint64, startUnix int64) error {
	if amount.Sign() < 0 {
		return NewValidationError("negative bond amount %s", amount)
	}
	entry := models.BondedRewardEntry{
		UserAddress:           userAddress,
		BondedAmount:          amount.String(),
		BondingPeriodSec:      bondingPeriodSec,
		BondingStartTimestamp: startUnix,
	}
	return s.db.Create(&entry).Error
}

func (s *bondingService) Claim(userAddress string, requested *big.Int, openingDate, now time.Time) error {
	if requested.Sign() <= 0 {
		return NewValidationError("claim amount must be positive")
	}

	var entries []models.BondedRewardEntry
	if err := s.db.Where("user_address = ?", userAddress).Order("id asc").Find(&entries).Error; err != nil {
		return err
	}

	unlocked := new(big.Int)
	remaining := new(big.Int).Set(requested)
	var survivors []models.BondedRewardEntry
	var earliestUnlock time.Time
	var earliestAmount *big.Int

	for _, entry := range entries {
		amount, err := utils.ParseAmount(entry.BondedAmount)
		if err != nil {
			return NewStateError("corrupt bonded amount for user %s: %v", userAddress, err)
		}
		unlock := entry.UnlockTime(openingDate)
		if earliestUnlock.IsZero() || unlock.Before(earliestUnlock) {
			earliestUnlock = unlock
			earliestAmount = amount
		}

		if !unlock.Before(now) || remaining.Sign() == 0 {
			if amount.Sign() > 0 {
				survivors = append(survivors, entry)
			}
			continue
		}

		if amount.Cmp(remaining) > 0 {
			entry.BondedAmount = new(big.Int).Sub(amount, remaining).String()
			unlocked.Add(unlocked, remaining)
			remaining.SetInt64(0)
			survivors = append(survivors, entry)
		} else {
			unlocked.Add(unlocked, amount)
			remaining.Sub(remaining, amount)
		}
	}

	if unlocked.Sign() == 0 {
		if len(entries) > 0 {
			return NewDomainError("no claimable rewards: earliest claimable %s unlocks at %s",
				earliestAmount, earliestUnlock.UTC().Format(time.RFC3339))
		}
		return NewDomainError("no claimable rewards")
	}
	if remaining.Sign() > 0 {
		return NewDomainError("insufficient claimable: %s < %s", unlocked, requested)
	}

	// Whole-list rewrite: exhausted entries are dropped, the reduced entry
	// keeps its position.
	if err := s.db.Where("user_address = ?", userAddress).Delete(&models.BondedRewardEntry{}).Error; err != nil {
		return err
	}
	if len(survivors) > 0 {
		if err := s.db.Create(&survivors).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *bondingService) ListByUser(userAddress string) ([]models.BondedRewardEntry, error) {
	var entries []models.BondedRewardEntry
	err := s.db.Where("user_address = ?", userAddress).Order("id asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
