package services

import (
	"errors"

	"github.com/rxtech-lab/amm-proxy/internal/models"
	"gorm.io/gorm"
)

// RequestIDService allocates correlation ids for dispatched sub-operations.
// Ids are strictly increasing and never reused; uniqueness holds because the
// counter row commits in the same transaction as the dispatch it correlates.
type RequestIDService interface {
	Next() (uint64, error)
}

type requestIDService struct {
	db *gorm.DB
}

func NewRequestIDService(db *gorm.DB) RequestIDService {
	return &requestIDService{db: db}
}

func (s *requestIDService) Next() (uint64, error) {
	var counter models.RequestIDCounter
	err := s.db.First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		counter = models.RequestIDCounter{ID: 1, Value: 1}
		if err := s.db.Create(&counter).Error; err != nil {
			return 0, err
		}
		return counter.Value, nil
	}
	if err != nil {
		return 0, err
	}

	counter.Value++
	if err := s.db.Save(&counter).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}
