// Package notify is the boundary to desktop notification delivery. Delivery
// is best-effort by policy: a notifier may silently fail and callers never
// branch on the outcome.
package notify

import (
	"log"
	"sync"
)

// Notifier sends a user-facing notification
type Notifier interface {
	Send(title, body string)
}

// Log writes notifications to the process log. It is the default sink when
// no desktop integration is attached.
type Log struct{}

func (Log) Send(title, body string) {
	log.Printf("🔔 %s: %s", title, body)
}

// Recorder captures notifications for inspection in tests
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

// Notification is one captured title/body pair
type Notification struct {
	Title string
	Body  string
}

func (r *Recorder) Send(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{Title: title, Body: body})
}

// Sent returns the notifications captured so far
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Reset clears the captured notifications
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
