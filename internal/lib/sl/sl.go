// Package sl содержит вспомогательные функции для работы с логгером slog.
// Упрощает формирование структурированных полей лога: ошибок и идентификаторов сущностей.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки. nil даёт пустую строку.
//
//	log.Error("failed to reconcile payment", sl.PaymentID(id), sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// UserID поле с идентификатором пользователя.
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

// PaymentID поле с идентификатором платежа.
func PaymentID(id int64) slog.Attr {
	return slog.Int64("payment_id", id)
}

// Loop поле с именем фонового цикла.
func Loop(name string) slog.Attr {
	return slog.String("loop", name)
}
