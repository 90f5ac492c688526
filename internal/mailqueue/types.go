package mailqueue

import "time"

// Status is the queue item lifecycle state.
//
//	PENDING → SENDING → {SENT, FAILED}
//	FAILED  → SENDING            while attempts < maxAttempts
//
// SENT is terminal. FAILED with attempts == maxAttempts is terminal too
// (dead letter): the selection predicate excludes it forever, but the row
// stays for external inspection.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSending Status = "SENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Item is one queued email. Owned by the store; transitioned only through
// the claim-then-resolve protocol.
type Item struct {
	ID        string
	UserID    string // optional; the recipient's account if known
	Recipient string
	Subject   string
	HTMLBody  string
	TextBody  string
	Status    Status
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    time.Time // zero until delivered
}

// EnqueueInput is what producers hand to Enqueue.
type EnqueueInput struct {
	UserID    string
	Recipient string
	Subject   string
	HTMLBody  string
	TextBody  string
}
