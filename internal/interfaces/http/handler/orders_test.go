package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordertrack/backend/internal/domain/tracking"
	"github.com/ordertrack/backend/internal/interfaces/http/dto"
)

func newOrdersRouter(repo *stubOrderRepository) *gin.Engine {
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewOrdersHandler(repo).RegisterRoutes(api)
	return engine
}

func sampleOrder(id uuid.UUID) tracking.Order {
	return tracking.Order{
		ID:          id,
		FirstName:   "דנה",
		LastName:    "לוי",
		Phone:       "0501234567",
		Items:       []string{"Mug", "Poster"},
		Total:       decimal.RequireFromString("189.80"),
		Method:      tracking.MethodBranchPickup,
		ExternalID:  "1001",
		OrderNumber: "2001",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestOrdersHandler_List(t *testing.T) {
	t.Run("returns open orders", func(t *testing.T) {
		first := sampleOrder(uuid.New())
		second := sampleOrder(uuid.New())
		second.Method = tracking.MethodHomeDelivery
		second.TrackingURL = "https://carrier.example/track/1"
		repo := &stubOrderRepository{open: []tracking.Order{first, second}}
		engine := newOrdersRouter(repo)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool            `json:"success"`
			Data    []OrderResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "דנה לוי", resp.Data[0].CustomerName)
		assert.Equal(t, "BRANCH_PICKUP", resp.Data[0].ShippingMethod)
		assert.Equal(t, "https://carrier.example/track/1", resp.Data[1].TrackingURL)
	})

	t.Run("returns empty list when store is empty", func(t *testing.T) {
		repo := &stubOrderRepository{}
		engine := newOrdersRouter(repo)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []OrderResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Data)
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		repo := &stubOrderRepository{openErr: fmt.Errorf("connection refused")}
		engine := newOrdersRouter(repo)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestOrdersHandler_GetByID(t *testing.T) {
	t.Run("returns order when found", func(t *testing.T) {
		id := uuid.New()
		order := sampleOrder(id)
		repo := &stubOrderRepository{byID: map[uuid.UUID]*tracking.Order{id: &order}}
		engine := newOrdersRouter(repo)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders/"+id.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data OrderResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.Data.ID)
		assert.Equal(t, "2001", resp.Data.OrderNumber)
	})

	t.Run("unknown order returns 404", func(t *testing.T) {
		repo := &stubOrderRepository{byID: map[uuid.UUID]*tracking.Order{}}
		engine := newOrdersRouter(repo)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		repo := &stubOrderRepository{}
		engine := newOrdersRouter(repo)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})
}
