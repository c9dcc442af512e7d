package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

func newIngestFixture() (*MockOrderRepository, *IngestService) {
	repo := new(MockOrderRepository)
	service := NewIngestService(repo, tracking.DefaultStatusMarkers(), zap.NewNop())
	return repo, service
}

func pickupPayload(orderNumber int64) tracking.WebhookOrder {
	return tracking.WebhookOrder{
		ID:          900000 + orderNumber,
		OrderNumber: orderNumber,
		TotalPrice:  decimal.RequireFromString("59.90"),
		BillingAddress: tracking.BillingAddress{
			FirstName: "Dana",
			LastName:  "Cohen",
			Phone:     "0521234567",
		},
		LineItems:     []tracking.LineItem{{Name: "Mug"}},
		ShippingLines: []tracking.ShippingLine{{Title: "איסוף מסניף רמת גן"}},
	}
}

func TestIngestService_StoresClassifiedOrders(t *testing.T) {
	repo, service := newIngestFixture()

	courier := pickupPayload(2001)
	courier.ShippingLines = []tracking.ShippingLine{{Title: "שליח עד הבית"}}
	courier.Fulfillments = []tracking.Fulfillment{{TrackingURL: "https://carrier.example/t/7"}}

	repo.On("Create", mock.Anything, mock.MatchedBy(func(o *tracking.Order) bool {
		return o.Method == tracking.MethodBranchPickup && o.OrderNumber == "2000"
	})).Return(nil).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(o *tracking.Order) bool {
		return o.Method == tracking.MethodHomeDelivery && o.TrackingURL == "https://carrier.example/t/7"
	})).Return(nil).Once()

	results, err := service.Ingest(context.Background(), []tracking.WebhookOrder{
		pickupPayload(2000),
		courier,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2000", results[0].OrderNumber)
	assert.Equal(t, tracking.MethodBranchPickup, results[0].Method)
	assert.Equal(t, "2001", results[1].OrderNumber)
	assert.Equal(t, tracking.MethodHomeDelivery, results[1].Method)
	repo.AssertExpectations(t)
}

func TestIngestService_RejectedBatchStoresNothing(t *testing.T) {
	repo, service := newIngestFixture()

	missing := pickupPayload(2002)
	missing.ShippingLines = nil

	_, err := service.Ingest(context.Background(), []tracking.WebhookOrder{
		pickupPayload(2001),
		missing,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, tracking.ErrShippingInfoMissing)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestService_StoreFailurePropagates(t *testing.T) {
	repo, service := newIngestFixture()
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate key"))

	_, err := service.Ingest(context.Background(), []tracking.WebhookOrder{pickupPayload(2003)})
	assert.Error(t, err)
	repo.AssertExpectations(t)
}
