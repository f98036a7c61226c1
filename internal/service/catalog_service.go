package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/apperr"
	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	Name              string          `json:"name" binding:"required,max=255"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price" binding:"required"`
	AvailableQuantity int             `json:"available_quantity" binding:"min=0"`
}

type UpdateProductRequest struct {
	Name              string           `json:"name" binding:"omitempty,max=255"`
	Description       *string          `json:"description"`
	Price             *decimal.Decimal `json:"price"`
	AvailableQuantity *int             `json:"available_quantity" binding:"omitempty,min=0"`
}

type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING SHIPPING DELIVERED"`
}

type OrderEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// CatalogService covers the thin product/order surface around the account
// core: role gating happens at the routes, stock accounting happens here.
type CatalogService interface {
	ListProducts(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, req UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	CreateOrder(ctx context.Context, clientID uint, req CreateOrderRequest) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint, status string) (*model.Order, error)
	ListOrders(ctx context.Context, page, limit int) ([]model.Order, int64, error)
	ListOrdersByClient(ctx context.Context, clientID uint, page, limit int) ([]model.Order, int64, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		txManager:   txManager,
		hub:         hub,
	}
}

func (s *catalogService) notify(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(OrderEvent{Event: event, Data: data})
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

func (s *catalogService) ListProducts(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	return s.productRepo.List(ctx, page, limit, search)
}

func (s *catalogService) CreateProduct(ctx context.Context, req CreateProductRequest) (*model.Product, error) {
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative: %w", apperr.ErrInvalidInput)
	}

	product := &model.Product{
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		AvailableQuantity: req.AvailableQuantity,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uint, req UpdateProductRequest) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product not found: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("price must not be negative: %w", apperr.ErrInvalidInput)
		}
		product.Price = *req.Price
	}
	if req.AvailableQuantity != nil {
		product.AvailableQuantity = *req.AvailableQuantity
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uint) error {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product not found: %w", apperr.ErrNotFound)
		}
		return fmt.Errorf("database error: %w", err)
	}
	return s.productRepo.Delete(ctx, id)
}

// CreateOrder reserves stock, computes the total from current prices and
// writes order plus items in one transaction. Items lock their product rows
// so concurrent orders cannot oversell.
func (s *catalogService) CreateOrder(ctx context.Context, clientID uint, req CreateOrderRequest) (*model.Order, error) {
	var order *model.Order
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		total := decimal.Zero
		items := make([]model.OrderItem, 0, len(req.Items))

		for _, itemReq := range req.Items {
			product, findErr := s.productRepo.FindByIDForUpdate(txCtx, itemReq.ProductID)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product %d not found: %w", itemReq.ProductID, apperr.ErrNotFound)
				}
				return fmt.Errorf("failed to load product %d: %w", itemReq.ProductID, findErr)
			}
			if product.AvailableQuantity < itemReq.Quantity {
				return fmt.Errorf("not enough stock for %q: %w", product.Name, apperr.ErrInvalidInput)
			}

			if stockErr := s.productRepo.UpdateStock(txCtx, product.ID, product.AvailableQuantity-itemReq.Quantity); stockErr != nil {
				return fmt.Errorf("failed to update stock: %w", stockErr)
			}

			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(itemReq.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, model.OrderItem{
				ProductID: product.ID,
				Quantity:  itemReq.Quantity,
				UnitPrice: product.Price,
			})
		}

		order = &model.Order{
			Code:     uuid.NewString(),
			Status:   model.OrderStatusPending,
			Total:    total,
			ClientID: clientID,
			Items:    items,
		}
		if createErr := s.orderRepo.Create(txCtx, order); createErr != nil {
			return fmt.Errorf("failed to create order: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify("order.created", map[string]interface{}{
		"order_id":  order.ID,
		"code":      order.Code,
		"client_id": clientID,
		"total":     order.Total,
	})
	return order, nil
}

func (s *catalogService) UpdateOrderStatus(ctx context.Context, id uint, status string) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order not found: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = status

	s.notify("order.status", map[string]interface{}{
		"order_id": order.ID,
		"status":   status,
	})
	return order, nil
}

func (s *catalogService) ListOrders(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	return s.orderRepo.List(ctx, page, limit)
}

func (s *catalogService) ListOrdersByClient(ctx context.Context, clientID uint, page, limit int) ([]model.Order, int64, error) {
	return s.orderRepo.ListByClient(ctx, clientID, page, limit)
}
