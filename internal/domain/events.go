package domain

import "time"

type CartUpdateReason string

const (
	CartReasonLoad   CartUpdateReason = "load"
	CartReasonAdd    CartUpdateReason = "add"
	CartReasonUpdate CartUpdateReason = "update"
	CartReasonRemove CartUpdateReason = "remove"
	CartReasonClear  CartUpdateReason = "clear"
	CartReasonSync   CartUpdateReason = "sync"
)

// CartUpdatedEvent is published on cart.updated after a snapshot is applied.
type CartUpdatedEvent struct {
	UserID    string           `json:"user_id"`
	Cart      Cart             `json:"cart"`
	Reason    CartUpdateReason `json:"reason"`
	Seq       uint64           `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
}
