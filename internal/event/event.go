package event

import (
	"encoding/json"
	"log"
	"time"
)

type Type string

const (
	TypeSaleCompleted Type = "sale.completed"
	TypeStockAdjusted Type = "stock.adjusted"
	TypeStockLow      Type = "stock.low"
	TypeUserPresence  Type = "user.presence"
)

// Event is one domain event emitted by a service after a successful commit.
// Events are collected during the transaction and published only once the
// unit of work has committed, so subscribers never observe rolled-back state.
type Event struct {
	Type       Type                   `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Actor      ActorInfo              `json:"actor"`
	Payload    map[string]interface{} `json:"payload"`
}

// ActorInfo attributes the event to the authenticated user who caused it.
type ActorInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func New(t Type, actor ActorInfo, payload map[string]interface{}) Event {
	return Event{
		Type:       t,
		OccurredAt: time.Now(),
		Actor:      actor,
		Payload:    payload,
	}
}

// Subscriber consumes events. Implementations must be fire-and-forget: they
// can neither fail nor delay the operation that emitted the event.
type Subscriber interface {
	Notify(e Event)
}

// Publisher fans events out to its subscribers.
type Publisher struct {
	subs []Subscriber
}

func NewPublisher(subs ...Subscriber) *Publisher {
	return &Publisher{subs: subs}
}

func (p *Publisher) Publish(events ...Event) {
	if p == nil {
		return
	}
	for _, e := range events {
		for _, s := range p.subs {
			notify(s, e)
		}
	}
}

func notify(s Subscriber, e Event) {
	// A subscriber panic must not reach the request path.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[event] subscriber panic on %s: %v", e.Type, r)
		}
	}()
	s.Notify(e)
}

// LogSubscriber writes every event to the process log. This is the audit
// trail consumer; it replaces per-model lifecycle observers.
type LogSubscriber struct{}

func (LogSubscriber) Notify(e Event) {
	payload, _ := json.Marshal(e.Payload)
	log.Printf("[event] %s actor=%s %s", e.Type, e.Actor.Email, payload)
}

// Broadcaster is anything that can push a raw message to connected clients.
// The WebSocket hub satisfies it.
type Broadcaster interface {
	Send(message []byte)
}

// WSSubscriber forwards events to the WebSocket hub so the UI updates live.
type WSSubscriber struct {
	Hub Broadcaster
}

func (s WSSubscriber) Notify(e Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		return
	}
	s.Hub.Send(msg)
}
