package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/example/bozor/internal/models"
)

// PaymentIntent ties a gateway-side payment session to an order and amount.
// It is returned to the client and not persisted beyond the gateway order id
// stamped onto the order row.
type PaymentIntent struct {
	GatewayOrderID string  `json:"gateway_order_id"`
	Amount         int64   `json:"amount"`
	Currency       string  `json:"currency"`
	KeyID          string  `json:"key_id"`
	CheckoutURL    string  `json:"checkout_url"`
	GrandTotal     float64 `json:"grand_total"`
}

// PaymentGateway abstracts the external payment provider so the order
// service can be exercised with a fake in tests.
type PaymentGateway interface {
	CreateIntent(order *models.Order) (*PaymentIntent, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// HMACGateway implements PaymentGateway for providers that sign payment
// completions with HMAC-SHA256 over "<gatewayOrderID>|<gatewayPaymentID>".
// The key secret is server-held and never sent to a client.
type HMACGateway struct {
	keyID       string
	keySecret   string
	checkoutURL string
}

// NewHMACGateway constructs the gateway adapter from config values.
func NewHMACGateway(keyID, keySecret, checkoutURL string) *HMACGateway {
	return &HMACGateway{
		keyID:       keyID,
		keySecret:   keySecret,
		checkoutURL: checkoutURL,
	}
}

// CreateIntent registers a payment session for the order's grand total and
// returns the checkout parameters the client needs to complete payment.
func (g *HMACGateway) CreateIntent(order *models.Order) (*PaymentIntent, error) {
	gatewayOrderID, err := generateGatewayOrderID()
	if err != nil {
		return nil, err
	}

	// Gateways take amounts in minor units.
	amount := int64(math.Round(order.GrandTotal * 100))

	checkout := ""
	if g.checkoutURL != "" {
		payload := fmt.Sprintf("m=%s;ac.order_id=%s;a=%d;c=%s",
			g.keyID, gatewayOrderID, amount, order.ID.String())
		checkout = g.checkoutURL + "/" + base64.StdEncoding.EncodeToString([]byte(payload))
	}

	return &PaymentIntent{
		GatewayOrderID: gatewayOrderID,
		Amount:         amount,
		Currency:       order.Currency,
		KeyID:          g.keyID,
		CheckoutURL:    checkout,
		GrandTotal:     order.GrandTotal,
	}, nil
}

// VerifySignature recomputes the expected signature and compares it with the
// client-supplied one in constant time. Timing-safe comparison is part of
// the contract, not an optimization.
func (g *HMACGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := g.Sign(gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the hex signature for a gateway order/payment pair. Exposed
// so tests can forge valid callbacks without a live gateway.
func (g *HMACGateway) Sign(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func generateGatewayOrderID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "order_" + hex.EncodeToString(buf), nil
}
