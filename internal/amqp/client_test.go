package amqp

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"

	"rentsplit/internal/events"
)

type fakePublisher struct {
	exchange, key string
	msg           amqp091.Publishing
	err           error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		prefix, eventType, want string
	}{
		{"ledger", events.TypeExpenseAdded, "ledger.expense.added"},
		{"house.a", events.TypeLedgerRolled, "house.a.ledger.rolled_over"},
		{"", events.TypeLedgerDisabled, "ledger.disabled"},
	}
	for _, tt := range tests {
		c := &Client{routingPrefix: tt.prefix}
		if got := c.RoutingKey(tt.eventType); got != tt.want {
			t.Errorf("RoutingKey(%q, %q) = %q, want %q", tt.prefix, tt.eventType, got, tt.want)
		}
	}
}

func TestSavePublishesPersistentJSON(t *testing.T) {
	pub := &fakePublisher{}
	c := &Client{pub: pub, exchangeName: "rentsplit", routingPrefix: "ledger"}
	e := events.New(events.WithType(events.TypeExpenseDeleted), events.WithMonth("2024-03"), events.WithData("id", "4"))

	if err := c.Save(context.Background(), e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if pub.exchange != "rentsplit" || pub.key != "ledger.expense.deleted" {
		t.Fatalf("published to %s/%s", pub.exchange, pub.key)
	}
	if pub.msg.DeliveryMode != amqp091.Persistent || pub.msg.ContentType != "application/json" {
		t.Fatalf("publishing = %+v", pub.msg)
	}
	if pub.msg.MessageId != e.ID.String() {
		t.Fatalf("message id = %q", pub.msg.MessageId)
	}

	msg, err := LedgerEventMessageFromJSON(pub.msg.Body)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.Type != e.Type || msg.Month != "2024-03" || msg.Data["id"] != "4" || !msg.Timestamp.Equal(e.CreatedAt) {
		t.Fatalf("message = %+v", msg)
	}
}

func TestSaveWrapsPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	c := &Client{pub: &fakePublisher{err: boom}, exchangeName: "x"}
	if err := c.Save(context.Background(), events.New(events.WithType(events.TypeLedgerResumed))); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

type fakeAck struct {
	acked    []uint64
	nacked   []uint64
	requeued []bool
}

func (f *fakeAck) Ack(tag uint64, _ bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeued = append(f.requeued, requeue)
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestConsumeAcksAndNacks(t *testing.T) {
	good, err := NewLedgerEventMessage(events.New(events.WithType(events.TypeExpenseAdded))).ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	failing, err := NewLedgerEventMessage(events.New(events.WithType(events.TypeLedgerRolled))).ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	ack := &fakeAck{}
	msgs := make(chan amqp091.Delivery, 4)
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: good}
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("{not json")}
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: failing}
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: failing, Redelivered: true}
	close(msgs)

	var handled []string
	err = consume(context.Background(), msgs, func(_ context.Context, m *LedgerEventMessage) error {
		handled = append(handled, m.Type)
		if m.Type == events.TypeLedgerRolled {
			return errors.New("sink down")
		}
		return nil
	})
	if err == nil {
		t.Fatal("closed channel should end consumption with an error")
	}

	if len(ack.acked) != 1 || ack.acked[0] != 1 {
		t.Errorf("acked = %v, want [1]", ack.acked)
	}
	wantNacks := []uint64{2, 3, 4}
	wantRequeue := []bool{false, true, false}
	if len(ack.nacked) != len(wantNacks) {
		t.Fatalf("nacked = %v, want %v", ack.nacked, wantNacks)
	}
	for i := range wantNacks {
		if ack.nacked[i] != wantNacks[i] || ack.requeued[i] != wantRequeue[i] {
			t.Errorf("nack %d = tag %d requeue %v, want tag %d requeue %v",
				i, ack.nacked[i], ack.requeued[i], wantNacks[i], wantRequeue[i])
		}
	}
	if len(handled) != 3 {
		t.Errorf("handler called %d times, want 3", len(handled))
	}
}

func TestConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := consume(ctx, make(chan amqp091.Delivery), func(context.Context, *LedgerEventMessage) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestMessageEventRoundTrip(t *testing.T) {
	e := events.New(events.WithType(events.TypeExpenseDeleted), events.WithMonth("2024-03"), events.WithData("id", "4"))
	body, err := NewLedgerEventMessage(e).ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	msg, err := LedgerEventMessageFromJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	got, err := msg.Event()
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if got.ID != e.ID || got.Type != e.Type || got.Month != e.Month || got.Data["id"] != "4" {
		t.Errorf("event = %+v, want %+v", got, e)
	}

	if _, err := (&LedgerEventMessage{ID: "nope", Type: "x"}).Event(); err == nil {
		t.Error("invalid id should fail")
	}
}
