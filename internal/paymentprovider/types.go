package paymentprovider

import (
	"strconv"
	"time"
)

// Amount сумма в копейках. В JSON пишется рублями с двумя знаками.
type Amount int64

// MarshalJSON реализует json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(a)/100, 'f', 2, 64)), nil
}

// CreateLinkRequest тело запроса на создание одноразовой ссылки.
type CreateLinkRequest struct {
	Type               string `json:"type"`
	Amount             Amount `json:"amount"`
	Currency           string `json:"currency"`
	Description        string `json:"description"`
	OrderID            string `json:"orderId"`
	SuccessRedirectURL string `json:"successRedirectUrl,omitempty"`
	FailRedirectURL    string `json:"failRedirectUrl,omitempty"`
	ExpirationDateTime string `json:"expirationDateTime"`
}

// CreateLinkResponse ответ шлюза на создание ссылки.
type CreateLinkResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Link созданная ссылка на оплату.
type Link struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// LinkParams параметры новой ссылки.
type LinkParams struct {
	Amount      int64 // копейки
	Description string
	OrderID     string
}

// Transaction транзакция по orderId.
type Transaction struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// TransactionsResponse ответ на поиск транзакций.
type TransactionsResponse struct {
	Items      []Transaction `json:"items"`
	TotalCount int           `json:"totalCount"`
}

// ErrorResponse тело ошибки шлюза.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	linkTypeOneTime    = "OneTime"
	currencyRUB        = "RUB"
	transactionPaid    = "Paid"
	expirationLayout   = "2006-01-02T15:04:05.000Z"
	defaultAPIURL      = "https://api-sandbox.wata.pro/api/h2h"
	defaultHTTPTimeout = 10 * time.Second
)
