package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

// CustomerRepository defines data access for CustomerProfile entities
type CustomerRepository interface {
	Create(ctx context.Context, profile *model.CustomerProfile) error
	GetByUserID(ctx context.Context, userID uint) (*model.CustomerProfile, error)
	Save(ctx context.Context, profile *model.CustomerProfile) error
}

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository returns a new instance of CustomerRepository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, profile *model.CustomerProfile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

func (r *customerRepository) GetByUserID(ctx context.Context, userID uint) (*model.CustomerProfile, error) {
	var profile model.CustomerProfile
	if err := GetDB(ctx, r.db).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *customerRepository) Save(ctx context.Context, profile *model.CustomerProfile) error {
	return GetDB(ctx, r.db).Save(profile).Error
}
