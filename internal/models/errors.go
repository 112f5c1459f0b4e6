package models

import "errors"

var (
	// ErrNotFound запись не найдена в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrConflict нарушено ограничение уникальности.
	ErrConflict = errors.New("conflict")
	// ErrGatewayUnavailable платёжный шлюз недоступен или ответил ошибкой.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrStoreUnavailable хранилище недоступно.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInconsistentState платёж переведён в paid, но подписка не создана.
	ErrInconsistentState = errors.New("inconsistent state")
	// ErrInvalidTransition запрошенный переход статуса платежа недопустим.
	ErrInvalidTransition = errors.New("invalid payment status transition")
	// ErrUndeliverable получатель не может принять сообщение, повтор бесполезен.
	ErrUndeliverable = errors.New("recipient cannot receive messages")
	// ErrUnknownPlan нет тарифа на указанное число месяцев.
	ErrUnknownPlan = errors.New("unknown plan")
)
