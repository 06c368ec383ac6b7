package queue

import (
	"context"
	"fmt"
)

// Publisher publishes dispatch trigger messages.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg TriggerMessage) error
	Close() error
}

// MessageHandler handles a consumed trigger message.
type MessageHandler func(ctx context.Context, msg TriggerMessage) error

// Consumer consumes dispatch trigger messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// TriggerQueue carries birthday and scheduled dispatch triggers from cron/salonctl to the worker.
const TriggerQueue = "crm.triggers"

// DLQName returns the dead-letter queue name for a work queue, e.g. dlq.crm.triggers.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}

// WorkQueueNames returns every work queue the topology declares.
func WorkQueueNames() []string {
	return []string{TriggerQueue}
}
