package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// AssessmentEvent describes websocket payloads emitted when assessments complete.
type AssessmentEvent struct {
	Type       string         `json:"type"`
	Assessment *AssessmentDTO `json:"assessment,omitempty"`
	Message    string         `json:"message,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

const (
	eventAssessmentCompleted = "assessment_completed"
	eventAssessmentFailed    = "assessment_failed"
)

// StreamStatus summarises the assessment feed for the config endpoint.
type StreamStatus struct {
	Clients   int              `json:"clients"`
	Completed int64            `json:"completed"`
	Failed    int64            `json:"failed"`
	Latest    *AssessmentEvent `json:"latest,omitempty"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(event AssessmentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(event)
}

// AssessmentNotifier fans assessment outcomes out to dashboard websockets. New
// subscribers receive the most recent completed assessment first.
type AssessmentNotifier struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	latest      *AssessmentEvent
	completed   int64
	failed      int64
}

// NewAssessmentNotifier constructs a notifier instance.
func NewAssessmentNotifier() *AssessmentNotifier {
	return &AssessmentNotifier{subscribers: make(map[*subscriber]struct{})}
}

// Subscribe attaches a websocket connection and replays the latest completed assessment.
func (n *AssessmentNotifier) Subscribe(conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn}
	n.mu.Lock()
	n.subscribers[sub] = struct{}{}
	latest := n.latest
	n.mu.Unlock()

	if latest != nil && sub.send(*latest) != nil {
		n.Unsubscribe(sub)
	}
	return sub
}

// Unsubscribe detaches the subscriber and closes its socket.
func (n *AssessmentNotifier) Unsubscribe(sub *subscriber) {
	if sub == nil {
		return
	}
	n.mu.Lock()
	_, ok := n.subscribers[sub]
	delete(n.subscribers, sub)
	n.mu.Unlock()
	if ok && sub.conn != nil {
		_ = sub.conn.Close()
	}
}

// Publish records the outcome and delivers it to every subscriber. Subscribers
// whose socket fails are dropped.
func (n *AssessmentNotifier) Publish(event AssessmentEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	switch event.Type {
	case eventAssessmentCompleted:
		n.completed++
		snapshot := event
		n.latest = &snapshot
	case eventAssessmentFailed:
		n.failed++
	}
	targets := make([]*subscriber, 0, len(n.subscribers))
	for sub := range n.subscribers {
		targets = append(targets, sub)
	}
	n.mu.Unlock()

	for _, sub := range targets {
		if err := sub.send(event); err != nil {
			n.Unsubscribe(sub)
		}
	}
}

// Status reports subscriber count, outcome counters and the latest completed assessment.
func (n *AssessmentNotifier) Status() StreamStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	status := StreamStatus{
		Clients:   len(n.subscribers),
		Completed: n.completed,
		Failed:    n.failed,
	}
	if n.latest != nil {
		latest := *n.latest
		status.Latest = &latest
	}
	return status
}
