package interfaces

import (
	"context"
	"time"
)

// Message is one raw queue delivery.
type Message struct {
	// ID is the queue-assigned message id.
	ID string
	// Body is the raw JSON payload.
	Body []byte
	// ReceiptHandle acknowledges (deletes) the delivery.
	ReceiptHandle string
}

// Queue provides batch receive and acknowledge operations.
// Implementations must be safe for concurrent use.
type Queue interface {
	// Receive returns up to max messages, long-polling until the
	// context expires or messages arrive.
	Receive(ctx context.Context, max int) ([]Message, error)

	// Ack deletes a message from the queue.
	Ack(ctx context.Context, receiptHandle string) error
}

// FailedMessage records a message whose pipeline run failed, for
// operator replay. Messages are acknowledged before processing, so the
// archive is the only copy left after a failure.
type FailedMessage struct {
	MessageID    string            `json:"message_id"`
	Body         []byte            `json:"body"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message"`
	Timestamp    time.Time         `json:"timestamp"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// FailureArchive persists failed message records.
type FailureArchive interface {
	Archive(ctx context.Context, rec FailedMessage) error
}
