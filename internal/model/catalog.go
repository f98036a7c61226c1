package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus constants
const (
	OrderStatusPending   = "PENDING"
	OrderStatusShipping  = "SHIPPING"
	OrderStatusDelivered = "DELIVERED"
)

// Product represents a catalog item
type Product struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	AvailableQuantity int             `gorm:"type:int;default:0;not null" json:"available_quantity"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Order represents a customer purchase
type Order struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Code      string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Status    string          `gorm:"type:varchar(20);default:'PENDING';not null" json:"status"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	ClientID  uint            `gorm:"not null;index" json:"client_id"`
	Client    *User           `gorm:"foreignKey:ClientID" json:"-"`
	Items     []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OrderItem represents a line item within an Order
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID" json:"-"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
}
