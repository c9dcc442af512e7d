package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// staticTokenSource is a TokenSource stub for tests
type staticTokenSource struct {
	token string
}

func (s *staticTokenSource) Refresh(ctx context.Context) error { return nil }
func (s *staticTokenSource) Token() string                     { return s.token }

func newTestMessenger(t *testing.T, baseURL string) *TemplateMessenger {
	messenger, err := NewTemplateMessenger(&TemplateMessengerConfig{
		BaseURL:          baseURL,
		PickupTemplate:   "order_arrived_pickup",
		DeliveryTemplate: "order_in_transit",
	}, &staticTokenSource{token: "tok-1"}, zap.NewNop())
	require.NoError(t, err)
	return messenger
}

func testOrder(phone string) *tracking.Order {
	return &tracking.Order{
		FirstName:   "Dana",
		LastName:    "Cohen",
		Phone:       phone,
		OrderNumber: "1042",
		TrackingURL: "https://carrier.example/t/9",
	}
}

func TestTemplateMessengerConfig_Validate(t *testing.T) {
	t.Run("missing base URL", func(t *testing.T) {
		err := (&TemplateMessengerConfig{PickupTemplate: "a", DeliveryTemplate: "b"}).Validate()
		assert.ErrorIs(t, err, ErrMessengerConfigMissingBaseURL)
	})

	t.Run("missing templates", func(t *testing.T) {
		err := (&TemplateMessengerConfig{BaseURL: "https://x"}).Validate()
		assert.ErrorIs(t, err, ErrMessengerConfigMissingTemplates)
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg := &TemplateMessengerConfig{BaseURL: "https://x", PickupTemplate: "a", DeliveryTemplate: "b"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "+972", cfg.DefaultPhonePrefix)
		assert.True(t, cfg.TimeoutSeconds > 0)
	})
}

func TestTemplateMessenger_SendPickupUpdate(t *testing.T) {
	t.Run("creates contact then sends template", func(t *testing.T) {
		var contactReq map[string]string
		var sendReq struct {
			ContactID string            `json:"contact_id"`
			Template  string            `json:"template"`
			Params    map[string]string `json:"params"`
		}
		var gotAuth string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			switch r.URL.Path {
			case "/contacts":
				require.NoError(t, json.NewDecoder(r.Body).Decode(&contactReq))
				w.Write([]byte(`{"id": "contact-77"}`))
			case "/messages/template":
				require.NoError(t, json.NewDecoder(r.Body).Decode(&sendReq))
				w.Write([]byte(`{"status": "queued"}`))
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		messenger := newTestMessenger(t, server.URL)
		err := messenger.SendPickupUpdate(context.Background(), testOrder("0521234567"), "סניף תל אביב")
		require.NoError(t, err)

		assert.Equal(t, "Bearer tok-1", gotAuth)
		assert.Equal(t, "+972521234567", contactReq["phone"])
		assert.Equal(t, "Dana Cohen", contactReq["name"])
		assert.Equal(t, "contact-77", sendReq.ContactID)
		assert.Equal(t, "order_arrived_pickup", sendReq.Template)
		assert.Equal(t, "סניף תל אביב", sendReq.Params["branch_name"])
		assert.Equal(t, "1042", sendReq.Params["order_number"])
	})

	t.Run("unparseable phone is skipped silently", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		messenger := newTestMessenger(t, server.URL)
		err := messenger.SendPickupUpdate(context.Background(), testOrder("not-a-phone"), "branch")
		require.NoError(t, err)
		assert.False(t, called)
	})
}

func TestTemplateMessenger_SendDeliveryUpdate(t *testing.T) {
	t.Run("sends delivery template with tracking URL", func(t *testing.T) {
		var sendReq struct {
			Template string            `json:"template"`
			Params   map[string]string `json:"params"`
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/contacts":
				w.Write([]byte(`{"id": "contact-1"}`))
			case "/messages/template":
				require.NoError(t, json.NewDecoder(r.Body).Decode(&sendReq))
				w.Write([]byte(`{}`))
			}
		}))
		defer server.Close()

		messenger := newTestMessenger(t, server.URL)
		err := messenger.SendDeliveryUpdate(context.Background(), testOrder("0521234567"))
		require.NoError(t, err)

		assert.Equal(t, "order_in_transit", sendReq.Template)
		assert.Equal(t, "https://carrier.example/t/9", sendReq.Params["tracking_url"])
	})

	t.Run("provider error maps to ErrNotificationFailed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		messenger := newTestMessenger(t, server.URL)
		err := messenger.SendDeliveryUpdate(context.Background(), testOrder("0521234567"))
		assert.ErrorIs(t, err, tracking.ErrNotificationFailed)
	})
}

func TestOAuthTokenSource(t *testing.T) {
	t.Run("refresh stores new token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oauth/token", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "cid", r.PostForm.Get("client_id"))
			w.Write([]byte(`{"access_token": "fresh-token"}`))
		}))
		defer server.Close()

		source, err := NewOAuthTokenSource(&OAuthTokenSourceConfig{
			BaseURL:      server.URL,
			ClientID:     "cid",
			ClientSecret: "secret",
		})
		require.NoError(t, err)

		require.NoError(t, source.Refresh(context.Background()))
		assert.Equal(t, "fresh-token", source.Token())
	})

	t.Run("failed refresh keeps previous token", func(t *testing.T) {
		fail := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"access_token": "first-token"}`))
		}))
		defer server.Close()

		source, err := NewOAuthTokenSource(&OAuthTokenSourceConfig{
			BaseURL:      server.URL,
			ClientID:     "cid",
			ClientSecret: "secret",
		})
		require.NoError(t, err)

		require.NoError(t, source.Refresh(context.Background()))
		fail = true
		assert.Error(t, source.Refresh(context.Background()))
		assert.Equal(t, "first-token", source.Token())
	})

	t.Run("missing credentials rejected", func(t *testing.T) {
		_, err := NewOAuthTokenSource(&OAuthTokenSourceConfig{BaseURL: "https://x"})
		assert.ErrorIs(t, err, ErrTokenConfigMissingClient)
	})
}
