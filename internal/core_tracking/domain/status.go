package domain

// MessageStatus is the canonical, provider-agnostic status of an outbound message.
type MessageStatus int

const (
	// StatusNotSet is the initial status of a freshly created message.
	StatusNotSet MessageStatus = iota
	// StatusInProgress means the send request has been recorded but the provider
	// has not acknowledged it yet.
	StatusInProgress
	// StatusSent means the provider accepted the message and assigned a reference.
	StatusSent
	// StatusDelivered means the message reached the recipient.
	StatusDelivered
	// StatusRejected means the provider or carrier refused the message.
	StatusRejected
	// StatusExpired means the message expired before delivery completed.
	StatusExpired
	// StatusUndeliverable means the message could not be delivered (e.g. invalid number).
	StatusUndeliverable
	// StatusBounced means the receiving mail server returned the message (email channel).
	StatusBounced
	// StatusSpam means the message was flagged as spam by the recipient side (email channel).
	StatusSpam
	// StatusFailed is produced only by provider status translation, never by the
	// aggregate's own transitions.
	StatusFailed
	// StatusUnknown is the translation result for unmapped provider codes.
	StatusUnknown
)

// String returns the string representation of the MessageStatus.
func (s MessageStatus) String() string {
	switch s {
	case StatusNotSet:
		return "NotSet"
	case StatusInProgress:
		return "InProgress"
	case StatusSent:
		return "Sent"
	case StatusDelivered:
		return "Delivered"
	case StatusRejected:
		return "Rejected"
	case StatusExpired:
		return "Expired"
	case StatusUndeliverable:
		return "Undeliverable"
	case StatusBounced:
		return "Bounced"
	case StatusSpam:
		return "Spam"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further status-changing event may follow s.
func (s MessageStatus) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusRejected, StatusExpired, StatusUndeliverable, StatusBounced, StatusSpam:
		return true
	default:
		return false
	}
}

// Channel identifies the delivery channel of a message.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)
