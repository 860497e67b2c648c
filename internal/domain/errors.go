package domain

import "errors"

// Aggregation errors. Connectors and the hub wrap these with %w so callers can
// classify failures with errors.Is.
var (
	// ErrMissingMint is returned when a payload carries no resolvable mint.
	ErrMissingMint = errors.New("missing mint")

	// ErrMalformedPayload is returned when a provider message cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrStreamUnavailable is returned when a streaming connector never managed
	// to establish its push connection.
	ErrStreamUnavailable = errors.New("stream unavailable")

	// ErrConsumer wraps failures raised by the downstream consumer.
	ErrConsumer = errors.New("consumer failed")

	// ErrUnknownSource is returned when a string does not name a Source.
	ErrUnknownSource = errors.New("unknown source")

	// ErrConnectorPanic marks a recovered panic inside a connector task.
	ErrConnectorPanic = errors.New("connector panic")
)

// ErrorKind classifies an error for stats and metrics labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConsumer):
		return "consumer"
	case errors.Is(err, ErrConnectorPanic):
		return "panic"
	case errors.Is(err, ErrMissingMint), errors.Is(err, ErrMalformedPayload):
		return "payload"
	default:
		return "transport"
	}
}
