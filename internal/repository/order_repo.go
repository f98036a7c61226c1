package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByIDWithItems(ctx context.Context, id uint) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	List(ctx context.Context, page, limit int) ([]model.Order, int64, error)
	ListByClient(ctx context.Context, clientID uint, page, limit int) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByIDWithItems(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepository) List(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	return r.list(ctx, GetDB(ctx, r.db).Model(&model.Order{}), page, limit)
}

func (r *orderRepository) ListByClient(ctx context.Context, clientID uint, page, limit int) ([]model.Order, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.Order{}).Where("client_id = ?", clientID)
	return r.list(ctx, db, page, limit)
}

func (r *orderRepository) list(_ context.Context, db *gorm.DB, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
