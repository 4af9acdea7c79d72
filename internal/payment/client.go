package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusApproved is the gateway's status string for an accepted call.
const StatusApproved = "Approved"

// GatewayError covers both transport failures and non-2xx responses
// from the merchant API. HTTPStatus is zero for transport failures.
type GatewayError struct {
	HTTPStatus int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("payment gateway unreachable: %s", e.Message)
	}
	return fmt.Sprintf("payment gateway rejected call (%d): %s", e.HTTPStatus, e.Message)
}

// CardDetails are the card fields forwarded verbatim to the gateway.
// They are never persisted.
type CardDetails struct {
	Number      string `json:"number"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	CVV         string `json:"cvv"`
	AVSZip      string `json:"avsZip"`
	AVSStreet   string `json:"avsStreet"`
}

// Result is the normalized gateway response shared by authorize,
// finalize and partial refund.
type Result struct {
	Status       string    `json:"status"`
	Created      time.Time `json:"created"`
	PaymentToken string    `json:"paymentToken"`
	GatewayID    string    `json:"id"`
	Amount       float64   `json:"amount"`
	Tax          float64   `json:"tax"`
	AuthCode     string    `json:"authCode"`
}

// Approved reports whether the gateway accepted the call.
func (r *Result) Approved() bool { return r.Status == StatusApproved }

// Client talks to the merchant checkout API. It holds its own
// credentials and is injected into the order service; calls carry HTTP
// basic auth built from the consumer key/secret pair. The client never
// retries: retry policy belongs to the caller.
type Client struct {
	Client     *http.Client
	Address    string
	MerchantID int64
	auth       string
}

func NewClient(httpClient *http.Client, address string, merchantID int64, consumerKey, consumerSecret string) *Client {
	creds := fmt.Sprintf("%s:%s", consumerKey, consumerSecret)
	return &Client{
		Client:     httpClient,
		Address:    address,
		MerchantID: merchantID,
		auth:       base64.StdEncoding.EncodeToString([]byte(creds)),
	}
}

type paymentRequest struct {
	MerchantID   int64        `json:"merchantId"`
	TenderType   string       `json:"tenderType"`
	Amount       float64      `json:"amount"`
	Tax          float64      `json:"tax,omitempty"`
	AuthOnly     bool         `json:"authOnly"`
	PaymentToken string       `json:"paymentToken,omitempty"`
	AuthCode     string       `json:"authCode,omitempty"`
	CardAccount  *CardDetails `json:"cardAccount,omitempty"`
}

// Authorize places an auth-only hold for amount; no funds are captured.
func (c *Client) Authorize(ctx context.Context, amount, tax float64, card CardDetails) (*Result, error) {
	return c.post(ctx, &paymentRequest{
		MerchantID:  c.MerchantID,
		TenderType:  "Card",
		Amount:      amount,
		Tax:         tax,
		AuthOnly:    true,
		CardAccount: &card,
	})
}

// Finalize captures a previously authorized hold identified by its
// payment token and auth code.
func (c *Client) Finalize(ctx context.Context, amount float64, paymentToken, authCode string) (*Result, error) {
	return c.post(ctx, &paymentRequest{
		MerchantID:   c.MerchantID,
		TenderType:   "Card",
		Amount:       amount,
		AuthOnly:     false,
		PaymentToken: paymentToken,
		AuthCode:     authCode,
	})
}

// RefundPartial adjusts a captured amount by a signed delta against its
// payment token: a negative delta refunds, a positive one charges the
// difference. The delta goes on the wire unchanged.
func (c *Client) RefundPartial(ctx context.Context, amount, tax float64, paymentToken string) (*Result, error) {
	return c.post(ctx, &paymentRequest{
		MerchantID:   c.MerchantID,
		TenderType:   "Card",
		Amount:       amount,
		Tax:          tax,
		AuthOnly:     false,
		PaymentToken: paymentToken,
	})
}

// RefundFull voids a gateway transaction by its id. Success is the
// gateway's 204.
func (c *Client) RefundFull(ctx context.Context, gatewayID string) (int, error) {
	url := fmt.Sprintf("%s/payment/%s?force=true", c.Address, gatewayID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.auth)

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, &GatewayError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &GatewayError{HTTPStatus: resp.StatusCode, Message: string(body)}
	}
	return resp.StatusCode, nil
}

func (c *Client) post(ctx context.Context, payload *paymentRequest) (*Result, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}
	url := fmt.Sprintf("%s/payment?echo=true", c.Address)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, &GatewayError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &GatewayError{HTTPStatus: resp.StatusCode, Message: string(body)}
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	return &res, nil
}
