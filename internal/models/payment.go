package models

import "time"

// PaymentStatus статус платежа.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentExpired   PaymentStatus = "expired"
	PaymentFailed    PaymentStatus = "failed" // зарезервирован под отказ шлюза
)

// IsTerminal сообщает, что из статуса нет переходов.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentPending
}

// CanTransition проверяет допустимость перехода from -> to.
// Единственный источник переходов - pending.
func CanTransition(from, to PaymentStatus) bool {
	if from != PaymentPending {
		return false
	}
	switch to {
	case PaymentPaid, PaymentCancelled, PaymentExpired, PaymentFailed:
		return true
	default:
		return false
	}
}

// Payment запись о попытке оплаты подписки.
type Payment struct {
	ID                int64
	UserID            int64
	GatewayID         string // идентификатор ссылки на стороне шлюза
	ExternalRef       string // orderId, по которому опрашивается шлюз
	Amount            int64  // в копейках
	Currency          string
	Months            int
	SubscriptionLevel int
	Status            PaymentStatus
	PaymentURL        string
	CreatedAt         time.Time
	PaidAt            *time.Time
}
