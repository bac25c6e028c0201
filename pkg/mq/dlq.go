package mq

import (
	"encoding/json"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// DeadLetterExchangeName receives notifications whose delivery was
	// abandoned after the retry budget ran out.
	DeadLetterExchangeName = "collab.events.dlq"
)

// DeclareDeadLetterExchange declares the dead letter exchange.
func DeclareDeadLetterExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		DeadLetterExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

// PublishToDeadLetter parks an undeliverable payload with the error that
// exhausted its retries recorded in the headers.
func (p *Publisher) PublishToDeadLetter(routingKey string, payload any, deliveryError string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	headers := amqp091.Table{
		"x-delivery-error": deliveryError,
	}

	return p.channel.Publish(
		DeadLetterExchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Headers:      headers,
		},
	)
}
