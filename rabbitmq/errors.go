package rabbitmq

import "errors"

var (
	// ErrClientClosed возвращается при операции над закрытым клиентом.
	ErrClientClosed = errors.New("rabbitmq client closed")
	// ErrChannelLost возвращается, когда соединения нет (идет переподключение).
	ErrChannelLost = errors.New("channel lost due to connection drop")
	// ErrMissingURL возвращается, если URL брокера не указан.
	ErrMissingURL = errors.New("rabbitmq URL is required")
	// ErrChannelClosedUnexpectedly возвращается, когда канал доставки закрылся (например, при разрыве соединения).
	ErrChannelClosedUnexpectedly = errors.New("message channel closed unexpectedly")
	// ErrMalformedSummary возвращается для сообщения, которое не удалось разобрать как сводку прогона.
	ErrMalformedSummary = errors.New("malformed run summary")
)
