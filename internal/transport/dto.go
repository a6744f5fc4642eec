package transport

import (
	"github.com/dmarquez/online_store/internal/models"
	"github.com/google/uuid"
)

type CreateOrderRequest struct {
	AddressID uuid.UUID `json:"address_id"`
}

// CreateOrderResponse carries the persisted order plus the provider
// session so the client can redirect the buyer to the payment page.
type CreateOrderResponse struct {
	Order      *models.Order `json:"order"`
	SessionID  string        `json:"session_id"`
	SessionURL string        `json:"session_url"`
}

type InsufficientStockResponse struct {
	Error     string    `json:"error"`
	ProductID uuid.UUID `json:"product_id"`
	Available int       `json:"available"`
	Requested uint      `json:"requested"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}
