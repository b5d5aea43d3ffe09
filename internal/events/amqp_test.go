package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/julianstephens/restreak/internal/engine"
)

func TestMessage(t *testing.T) {
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	ev := engine.Event{Type: engine.EventHabitDone, HabitID: "h1", Title: "Read", Day: "2024-05-10", Streak: 4, At: at}

	msg, err := message(ev)
	if err != nil {
		t.Fatalf("message failed: %v", err)
	}
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp091.Persistent {
		t.Errorf("unexpected headers: %+v", msg)
	}
	if msg.Type != "habit.completed" || !msg.Timestamp.Equal(at) {
		t.Errorf("type/timestamp = %q %v", msg.Type, msg.Timestamp)
	}

	var got engine.Event
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if got.HabitID != "h1" || got.Streak != 4 || got.Day != "2024-05-10" {
		t.Errorf("decoded event = %+v", got)
	}
}

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		typ  engine.EventType
		want string
	}{
		{engine.EventHabitCreated, "habit.created"},
		{engine.EventHabitUndone, "habit.undone"},
		{engine.EventBadgeUnlocked, "badge.unlocked"},
	}
	for _, tt := range tests {
		if got := routingKey(engine.Event{Type: tt.typ}); got != tt.want {
			t.Errorf("routingKey(%s) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestPublisherRoundTrip(t *testing.T) {
	url := os.Getenv("AMQP_TEST_URL")
	if url == "" {
		t.Skip("AMQP_TEST_URL not set, skipping RabbitMQ test")
	}
	p, err := NewPublisher(url, "restreak.test")
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	defer p.Close()

	conn, err := amqp091.Dial(url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := ch.QueueBind(q.Name, "badge.*", "restreak.test", false, nil); err != nil {
		t.Fatalf("bind: %v", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, engine.Event{Type: engine.EventBadgeUnlocked, BadgeID: "first_habit", At: time.Now()}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case d := <-deliveries:
		if d.RoutingKey != "badge.unlocked" {
			t.Errorf("routing key = %q", d.RoutingKey)
		}
	case <-ctx.Done():
		t.Fatal("no delivery received")
	}
}
