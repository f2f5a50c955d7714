package period

import "fmt"

// Status mirrors the backend's reservation status codes.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusCancelled
	StatusRejected
)

// Blocks reports whether a reservation in this status occupies its slot.
// Codes outside the known set block.
func (s Status) Blocks() bool {
	return s != StatusCancelled && s != StatusRejected
}

func (s Status) Known() bool {
	return s >= StatusPending && s <= StatusRejected
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
