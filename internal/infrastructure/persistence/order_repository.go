package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordertrack/backend/internal/domain/shared"
	"github.com/ordertrack/backend/internal/domain/tracking"
	"github.com/ordertrack/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements tracking.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create stores a new tracked order
func (r *GormOrderRepository) Create(ctx context.Context, order *tracking.Order) error {
	model := models.OrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a tracked order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*tracking.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpen returns every tracked order still awaiting a terminal status
func (r *GormOrderRepository) FindOpen(ctx context.Context) ([]tracking.Order, error) {
	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]tracking.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}

// SetTrackingURL stores the carrier tracking URL discovered after ingestion
func (r *GormOrderRepository) SetTrackingURL(ctx context.Context, id uuid.UUID, trackingURL string) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Update("tracking_url", trackingURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClaimCustomerNotify flips the customer-notified flag if it is still unset.
// The conditional update makes the claim atomic: exactly one caller wins,
// everyone else sees claimed=false.
func (r *GormOrderRepository) ClaimCustomerNotify(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND customer_notified = ?", id, false).
		Update("customer_notified", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a tracked order
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.OrderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether the error is a postgres unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// Ensure GormOrderRepository implements tracking.OrderRepository
var _ tracking.OrderRepository = (*GormOrderRepository)(nil)
