package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	CandidateRoutingKey = "fingerprint.candidate"
	StatusRoutingKey    = "fingerprint.status"
)

// Topology names the exchange and queues shared by the enqueuer and the worker.
type Topology struct {
	Exchange       string
	CandidateQueue string
	StatusQueue    string
	DLQ            string
}

// Declare creates the exchange, queues and bindings. It is idempotent.
func (t Topology) Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{t.CandidateQueue, t.DLQ, t.StatusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := ch.QueueBind(t.CandidateQueue, CandidateRoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind candidate queue: %w", err)
	}
	if err := ch.QueueBind(t.StatusQueue, StatusRoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind status queue: %w", err)
	}
	return nil
}
