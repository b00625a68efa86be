package mqtt

import "errors"

var (
	// ErrNotConnected: the broker connection is down (reconnect may be in progress).
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps the error from the first connect attempt.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps a broker-side publish error.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrPayloadTooLarge is returned for payloads over maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	// ErrEncodeFailed is returned when PublishJSON cannot marshal its value.
	ErrEncodeFailed = errors.New("mqtt: payload encoding failed")

	ErrInvalidQoS   = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrInvalidTopic = errors.New("mqtt: empty topic")

	// ErrTimeout is returned when the broker does not acknowledge a publish in time.
	ErrTimeout = errors.New("mqtt: publish timed out")
)
