package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// OrderModel maps the tracked-order aggregate to the orders table
type OrderModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	ExternalID       string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	OrderNumber      string          `gorm:"type:varchar(64);not null"`
	FirstName        string          `gorm:"type:varchar(128);not null"`
	LastName         string          `gorm:"type:varchar(128);not null"`
	Phone            string          `gorm:"type:varchar(32);not null"`
	Items            pq.StringArray  `gorm:"type:text[]"`
	Total            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingMethod   string          `gorm:"type:varchar(32);not null;index"`
	TrackingURL      string          `gorm:"type:text"`
	CustomerNotified bool            `gorm:"not null;default:false"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName specifies the table name
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts OrderModel to a domain Order
func (m *OrderModel) ToDomain() *tracking.Order {
	return &tracking.Order{
		ID:               m.ID,
		ExternalID:       m.ExternalID,
		OrderNumber:      m.OrderNumber,
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		Phone:            m.Phone,
		Items:            []string(m.Items),
		Total:            m.Total,
		Method:           tracking.ShippingMethod(m.ShippingMethod),
		TrackingURL:      m.TrackingURL,
		CustomerNotified: m.CustomerNotified,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// OrderModelFromDomain converts a domain Order to OrderModel
func OrderModelFromDomain(o *tracking.Order) *OrderModel {
	return &OrderModel{
		ID:               o.ID,
		ExternalID:       o.ExternalID,
		OrderNumber:      o.OrderNumber,
		FirstName:        o.FirstName,
		LastName:         o.LastName,
		Phone:            o.Phone,
		Items:            pq.StringArray(o.Items),
		Total:            o.Total,
		ShippingMethod:   o.Method.String(),
		TrackingURL:      o.TrackingURL,
		CustomerNotified: o.CustomerNotified,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}
