package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

const (
	// OwnerKey ключ для хранения владельца записей (JWT subject) в контексте
	OwnerKey contextKey = "owner"
	// CorrelationIDKey ключ для X-Correlation-ID запроса
	CorrelationIDKey contextKey = "correlation_id"
)

// DefaultOwner владеет записями, когда сервер запущен без JWT секрета
const DefaultOwner = "default"

// WithOwner возвращает контекст с владельцем записей
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, OwnerKey, owner)
}

// GetOwner извлекает владельца из контекста запроса
func GetOwner(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(OwnerKey).(string)
	return owner, ok && owner != ""
}

// WithCorrelationID возвращает контекст с идентификатором корреляции
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID извлекает идентификатор корреляции из контекста
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}
