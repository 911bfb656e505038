package model

import (
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
)

// RegistrationRequest is the body of POST /v1/registrations.
type RegistrationRequest struct {
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Agent    string `json:"agent,omitempty"` // optional referring agent
}

// ReserveRegistrationRequest is the body of POST /v1/registrations/reserve.
type ReserveRegistrationRequest struct {
	Name  string `json:"name" binding:"required"`
	Agent string `json:"agent,omitempty"`
}

// Receipt describes a completed paid registration.
type Receipt struct {
	Name          string            `json:"name"`
	NameID        string            `json:"name_id"`
	Owner         string            `json:"owner"`
	Currency      string            `json:"currency"`
	Agent         string            `json:"agent,omitempty"`
	Amount        fixedpoint.Amount `json:"amount"`
	AgentShare    fixedpoint.Amount `json:"agent_share"`
	OperatorShare fixedpoint.Amount `json:"operator_share"`
	RegistryFee   fixedpoint.Amount `json:"registry_fee"`
}

// Quote is a read-only price for a name in a settlement currency.
type Quote struct {
	Name      string            `json:"name"`
	Currency  string            `json:"currency"`
	BasePrice fixedpoint.Amount `json:"base_price"`
	Amount    fixedpoint.Amount `json:"amount"`
}

type FeedRequest struct {
	Currency string `json:"currency"`
	Oracle   string `json:"oracle" binding:"required"`
	Decimals uint8  `json:"decimals" binding:"required"`
}

type FeedView struct {
	Currency  string            `json:"currency"`
	Oracle    string            `json:"oracle"`
	Decimals  uint8             `json:"decimals"`
	Collected fixedpoint.Amount `json:"collected"`
}

// AgentRequest carries a commission rate as a percent string, e.g. "20" or "12.5".
type AgentRequest struct {
	Agent string `json:"agent"`
	Rate  string `json:"rate" binding:"required"`
}

type AgentView struct {
	Agent  string `json:"agent"`
	Rate   uint64 `json:"rate"`
	Active bool   `json:"active"`
}

type CommissionView struct {
	Agent    string            `json:"agent"`
	Currency string            `json:"currency"`
	Earned   fixedpoint.Amount `json:"earned"`
}

// AmountRequest carries a human decimal amount, e.g. "1000.5".
type AmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type PriceRequest struct {
	Price string `json:"price" binding:"required"`
}

type RegistryRequest struct {
	Registry string `json:"registry" binding:"required"`
}

type ReserveView struct {
	Token            string            `json:"token"`
	Deposited        fixedpoint.Amount `json:"deposited"`
	Approved         fixedpoint.Amount `json:"approved"`
	CollectedReserve fixedpoint.Amount `json:"collected_reserve"`
}

type StatusView struct {
	Paused       bool              `json:"paused"`
	Operator     string            `json:"operator"`
	Registry     string            `json:"registry"`
	ReserveToken string            `json:"reserve_token"`
	ReservePrice fixedpoint.Amount `json:"reserve_price"`
	Feeds        int               `json:"feeds"`
}

// Payout reports tokens sent out of the system by an admin operation.
type Payout struct {
	Token  string            `json:"token"`
	To     string            `json:"to"`
	Amount fixedpoint.Amount `json:"amount"`
}
