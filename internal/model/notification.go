package model

import (
	"time"
)

// NotificationKind names a committed ledger change.
type NotificationKind string

const (
	KindFeedAdded          NotificationKind = "price_feed_added"
	KindFeedUpdated        NotificationKind = "price_feed_updated"
	KindFeedRemoved        NotificationKind = "price_feed_removed"
	KindAgentAdded         NotificationKind = "agent_added"
	KindAgentRateUpdated   NotificationKind = "agent_rate_updated"
	KindAgentRemoved       NotificationKind = "agent_removed"
	KindReserveApproved    NotificationKind = "reserve_approved"
	KindReserveDeposited   NotificationKind = "reserve_deposited"
	KindReserveWithdrawn   NotificationKind = "reserve_withdrawn"
	KindCollectedForwarded NotificationKind = "collected_forwarded"
	KindReserveForwarded   NotificationKind = "collected_reserve_forwarded"
	KindReservePriceSet    NotificationKind = "reserve_price_updated"
	KindRegistrySet        NotificationKind = "registry_updated"
	KindPaused             NotificationKind = "paused"
	KindUnpaused           NotificationKind = "unpaused"
	KindNameRegistered     NotificationKind = "name_registered"
)

// Notification is one audit record per committed state change. Attributes carry
// the identifiers and amounts involved, amounts as base-10 integer strings.
type Notification struct {
	ID         string            `json:"id"`
	Kind       NotificationKind  `json:"kind"`
	Actor      string            `json:"actor,omitempty"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
}
