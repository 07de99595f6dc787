package models

import (
	"time"
)

// SaleListing describes one flash sale. Listings are created by the
// administrative path and are read-only to the engine.
type SaleListing struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	InitialStock int       `json:"initial_stock"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// PurchaseRecord is the durable artifact of a successful purchase.
// At most one record exists per (sale, buyer) pair.
type PurchaseRecord struct {
	SaleID      int64     `json:"sale_id"`
	BuyerID     int64     `json:"buyer_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Exposer tells a client whether the purchase URL for a sale is open.
// The token is only set while the sale window is open; otherwise the
// client gets the current and scheduled times so it can retry later.
type Exposer struct {
	SaleID  int64     `json:"sale_id"`
	Exposed bool      `json:"exposed"`
	Token   string    `json:"token,omitempty"`
	Now     time.Time `json:"now"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// ExecutionState is the terminal state of one purchase attempt.
type ExecutionState string

const (
	StateSuccess      ExecutionState = "SUCCESS"
	StateRepeatKill   ExecutionState = "REPEAT_KILL"
	StateSaleClosed   ExecutionState = "SALE_CLOSED"
	StateInvalidToken ExecutionState = "INVALID_TOKEN"
	StateOutOfStock   ExecutionState = "OUT_OF_STOCK"
	StateNotFound     ExecutionState = "SALE_NOT_FOUND"
	StateSystemError  ExecutionState = "SYSTEM_ERROR"
)

// Execution is the outcome of one purchase attempt. Record is set for
// StateSuccess (the new record) and StateRepeatKill (the prior one).
type Execution struct {
	SaleID  int64           `json:"sale_id"`
	BuyerID int64           `json:"buyer_id"`
	State   ExecutionState  `json:"state"`
	Record  *PurchaseRecord `json:"record,omitempty"`
}
