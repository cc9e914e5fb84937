package services

import (
	"errors"

	"github.com/rxtech-lab/amm-proxy/internal/models"
	"gorm.io/gorm"
)

// ContinuationService is the ledger of pending multi-step operations, keyed
// by request id. A record is written immediately before its sub-operation is
// dispatched and consumed at most once by the matching completion callback.
type ContinuationService interface {
	// Begin allocates a request id and stores the continuation under it.
	Begin(next models.NextAction, params models.LiquidityParams, funds []models.Coin, userAddress string, tokenProvided bool) (uint64, error)
	// Take loads and removes the record. A duplicate or unknown id returns
	// nil with no error; callers treat that as an opaque pass-through.
	Take(requestID uint64) (*models.ContinuationRecord, error)
}

type continuationService struct {
	db  *gorm.DB
	ids RequestIDService
}

func NewContinuationService(db *gorm.DB) ContinuationService {
	return &continuationService{db: db, ids: NewRequestIDService(db)}
}

func (s *continuationService) Begin(next models.NextAction, params models.LiquidityParams, funds []models.Coin, userAddress string, tokenProvided bool) (uint64, error) {
	requestID, err := s.ids.Next()
	if err != nil {
		return 0, err
	}

	record := models.ContinuationRecord{
		RequestID:     requestID,
		NextAction:    next,
		Params:        params,
		Funds:         funds,
		UserAddress:   userAddress,
		TokenProvided: tokenProvided,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return 0, err
	}
	return requestID, nil
}

func (s *continuationService) Take(requestID uint64) (*models.ContinuationRecord, error) {
	var record models.ContinuationRecord
	err := s.db.First(&record, "request_id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(&models.ContinuationRecord{}, "request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
