package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	config "github.com/ndegwakip/huduma_hub/configs"
)

const defaultBaseURL = "https://api.razorpay.com"

// RazorpayClient talks to the payment gateway's REST API. Calls carry an
// explicit timeout and a small bounded retry with backoff; a call that
// exhausts its retries is reported as failed, never retried forever.
type RazorpayClient struct {
	BaseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	maxRetries int
}

func NewRazorpayClient() *RazorpayClient {
	baseURL := config.Config("RAZORPAY_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &RazorpayClient{
		BaseURL:    baseURL,
		keyID:      config.Config("RAZORPAY_KEY_ID"),
		keySecret:  config.Config("RAZORPAY_KEY_SECRET"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
	}
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type refundResponse struct {
	ID string `json:"id"`
}

// CreateOrder opens a gateway order for the given amount in minor currency
// units and returns the gateway's order id.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (string, error) {
	payload := map[string]interface{}{
		"amount":   amountCents,
		"currency": currency,
		"receipt":  receipt,
	}
	var order orderResponse
	if err := c.post(ctx, "/v1/orders", payload, &order); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("create order: gateway returned no order id")
	}
	return order.ID, nil
}

// Refund reverses a captured payment, fully or partially.
func (c *RazorpayClient) Refund(ctx context.Context, gatewayPaymentID string, amountCents int64) (string, error) {
	payload := map[string]interface{}{"amount": amountCents}
	var refund refundResponse
	path := fmt.Sprintf("/v1/payments/%s/refund", gatewayPaymentID)
	if err := c.post(ctx, path, payload, &refund); err != nil {
		return "", fmt.Errorf("refund: %w", err)
	}
	if refund.ID == "" {
		return "", fmt.Errorf("refund: gateway returned no refund id")
	}
	return refund.ID, nil
}

// VerifySignature checks the checkout callback against the server-held
// secret. The client never gets to assert success; only this check does.
func (c *RazorpayClient) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return VerifySignature(gatewayOrderID, gatewayPaymentID, signature, c.keySecret)
}

// VerifySignature recomputes the HMAC-SHA256 of "orderID|paymentID" with
// the secret and compares it to the supplied hex signature in constant
// time.
func VerifySignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Signature computes the hex signature for an order/payment pair. Used by
// tests and by tooling that needs to emulate the gateway callback.
func Signature(gatewayOrderID, gatewayPaymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *RazorpayClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(body))
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.keyID, c.keySecret)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.Printf("Gateway call %s failed (attempt %d): %v", path, attempt+1, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
			continue
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			// Client errors are not retryable.
			return fmt.Errorf("gateway rejected request with status %d: %s", resp.StatusCode, string(respBody))
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal gateway response: %v", err)
		}
		return nil
	}
	return lastErr
}
