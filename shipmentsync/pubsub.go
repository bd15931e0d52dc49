package shipmentsync

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/modaflow/atelier_backend/config"
)

type pushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PushHandler accepts Pub/Sub push deliveries of dispatch events. Malformed
// envelopes are acked with 204 so the broker stops redelivering them;
// processing failures return 500 for redelivery.
func (w *Worker) PushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_DISPATCH_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope pushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var msg config.MaterialDispatchMessage
		if err := json.Unmarshal(envelope.Message.Data, &msg); err != nil {
			c.Status(204)
			return
		}
		if msg.MaterialRequestId == 0 {
			c.Status(204)
			return
		}

		if _, err := w.processDispatch(c.Request.Context(), msg); err != nil {
			c.Status(500)
			return
		}
		c.Status(204)
	}
}

// Run pulls dispatch events until ctx is cancelled. Intended for the
// standalone sync service; the API server uses the push endpoint instead.
func (w *Worker) Run(ctx context.Context) error {
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topicName := strings.TrimSpace(os.Getenv("PUBSUB_DISPATCH_TOPIC"))
	if topicName == "" {
		topicName = "material-dispatch"
	}
	subName := strings.TrimSpace(os.Getenv("PUBSUB_DISPATCH_SUBSCRIPTION"))
	if subName == "" {
		subName = topicName + "-shipment-sync"
	}

	sub := client.Subscription(subName)
	if envBoolDefault("PUBSUB_DISPATCH_CREATE_SUBSCRIPTION", false) {
		topic, err := config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
		sub, err = config.CreateSubscriptionIfNotExists(client, subName, topic)
		if err != nil {
			return err
		}
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		var msg config.MaterialDispatchMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			// poison message, drop it
			m.Ack()
			return
		}
		if _, err := w.processDispatch(ctx, msg); err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
