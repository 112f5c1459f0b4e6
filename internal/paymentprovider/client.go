// Package paymentprovider реализует клиент платёжного шлюза WATA:
// создание одноразовой ссылки и проверку оплаты по orderId.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client клиент WATA h2h API.
type Client struct {
	token      string
	apiURL     string
	linkTTL    time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewClient создаёт клиент. Пустой apiURL означает sandbox.
func NewClient(apiURL, token string, timeout, linkTTL time.Duration) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if linkTTL <= 0 {
		linkTTL = time.Hour
	}
	return &Client{
		token:      token,
		apiURL:     strings.TrimRight(apiURL, "/"),
		linkTTL:    linkTTL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreatePaymentLink создаёт одноразовую ссылку, живущую linkTTL.
func (c *Client) CreatePaymentLink(ctx context.Context, p LinkParams) (*Link, error) {
	const op = "paymentprovider.CreatePaymentLink"

	expiresAt := c.now().UTC().Add(c.linkTTL)
	body := CreateLinkRequest{
		Type:               linkTypeOneTime,
		Amount:             Amount(p.Amount),
		Currency:           currencyRUB,
		Description:        p.Description,
		OrderID:            p.OrderID,
		ExpirationDateTime: expiresAt.Format(expirationLayout),
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/links", body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: %w", op, statusError(resp))
	}

	var linkResp CreateLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&linkResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if linkResp.ID == "" || linkResp.URL == "" {
		return nil, fmt.Errorf("%s: empty link in response", op)
	}
	return &Link{ID: linkResp.ID, URL: linkResp.URL, ExpiresAt: expiresAt}, nil
}

// IsPaid сообщает, есть ли по orderId транзакция в статусе Paid.
func (c *Client) IsPaid(ctx context.Context, orderID string) (bool, error) {
	const op = "paymentprovider.IsPaid"

	req, err := c.newRequest(ctx, http.MethodGet, "/transactions/?orderId="+url.QueryEscape(orderID), nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%s: %w", op, statusError(resp))
	}

	var txs TransactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	for _, item := range txs.Items {
		if item.Status == transactionPaid {
			return true, nil
		}
	}
	return false, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e ErrorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		return fmt.Errorf("unexpected status %s: %s", resp.Status, e.Error.Message)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}
