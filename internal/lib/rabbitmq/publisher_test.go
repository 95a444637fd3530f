package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

func TestPublishMessage(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(ctx, amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer func() {
		if err := ch.Close(); err != nil {
			t.Errorf("failed to close channel: %v", err)
		}
	}()

	queueName := "publish-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	type TestMsg struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	t.Run("success publish and consume", func(t *testing.T) {
		msg := TestMsg{ID: 1, Name: "Hello"}

		err = PublishMessage(ch, "", queueName, msg)
		require.NoError(t, err)

		deliveries, err := ch.Consume(queueName, "test-consumer", true, false, false, false, nil)
		require.NoError(t, err)

		select {
		case d := <-deliveries:
			var got TestMsg
			err := json.Unmarshal(d.Body, &got)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
			assert.Equal(t, "application/json", d.ContentType)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("marshal error", func(t *testing.T) {
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{
			Ch: make(chan int),
		}

		err := PublishMessage(ch, "", queueName, badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})
}

func TestMailPublisher_RoutesByEventType(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(ctx, amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := SetupChannel(conn, GetMailQueues())
	require.NoError(t, err)
	publisher := NewMailPublisher(ch)

	expiry := time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)
	event := models.MailEvent{
		Type:      models.MailPasswordReset,
		Email:     "alice@example.com",
		Name:      "Alice",
		Link:      "http://localhost:3000/reset-password?token=abc",
		ExpiresAt: &expiry,
	}
	require.NoError(t, publisher.PublishMail(ctx, event))

	deliveries, err := ch.Consume("mail.password_reset", "test-consumer", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got models.MailEvent
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, event.Email, got.Email)
		assert.Equal(t, event.Link, got.Link)
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, expiry.Equal(*got.ExpiresAt))
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message via exchange")
	}

	q, err := ch.QueueInspect("mail.verification")
	require.NoError(t, err)
	assert.Equal(t, 0, q.Messages, "reset mail must not reach the verification queue")
}

func TestMailPublisher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewMailPublisher(nil)
	err := p.PublishMail(ctx, models.MailEvent{Type: models.MailVerification})
	require.ErrorIs(t, err, context.Canceled)
}
