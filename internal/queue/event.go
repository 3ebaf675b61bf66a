// Package queue defines the message payloads exchanged over the message
// broker together with the publisher and the background consumer for the
// registration.created queue.
package queue

// RegistrationCreatedQueue is the durable queue every successful
// registration is announced on.
const RegistrationCreatedQueue = "registration.created"

// RegistrationCreatedEvent is published after a registration has been
// stored.  It carries enough information for downstream consumers to log or
// notify attendees without querying the primary database.
type RegistrationCreatedEvent struct {
	RegistrationID uint64   `json:"registration_id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	College        string   `json:"college"`
	Branch         string   `json:"branch"`
	Year           string   `json:"year"`
	Events         []int    `json:"events"`
	EventNames     []string `json:"event_names"`
	CreatedAt      string   `json:"created_at"`
}
