package dto

import "time"

type RequestCreateRequest struct {
	UserID  int64  `json:"user_id"`
	Payload string `json:"payload"`
	Days    int    `json:"days"`
	Price   int64  `json:"price"`
}

type RequestCreateResponse struct {
	RequestID string    `json:"request_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type AdjudicateRequest struct {
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

type AdjudicateResponse struct {
	RequestID  string     `json:"request_id"`
	UserID     int64      `json:"user_id"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	NewBalance int64      `json:"new_balance,omitempty"`
	NewExpiry  *time.Time `json:"new_expiry,omitempty"`
}
