package dto

import "time"

type TopUpCreateRequest struct {
	UserID int64  `json:"user_id"`
	Amount int64  `json:"amount"`
	Method string `json:"method"`
	Proof  string `json:"proof,omitempty"`
}

type TopUpCreateResponse struct {
	TopUpID   string    `json:"topup_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type TopUpAdjudicateResponse struct {
	TopUpID    string `json:"topup_id"`
	UserID     int64  `json:"user_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	NewBalance int64  `json:"new_balance,omitempty"`
}
