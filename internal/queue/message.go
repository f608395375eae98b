package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message wraps a delivered row change with its acknowledgement
// handle. Exactly one of Ack or Nack must be called per message.
type Message struct {
	Change      *RowChange
	deliveryTag uint64
	channel     *amqp.Channel
}

// Ack acknowledges the message, removing it from the queue.
func (m *Message) Ack() error {
	if m.channel == nil {
		return nil
	}
	return m.channel.Ack(m.deliveryTag, false)
}

// Nack rejects the message. With requeue it is redelivered later;
// without, it dead-letters.
func (m *Message) Nack(requeue bool) error {
	if m.channel == nil {
		return nil
	}
	return m.channel.Nack(m.deliveryTag, false, requeue)
}
