package dto

import "time"

type EnsureAccountRequest struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

type EnsureAccountResponse struct {
	UserID int64 `json:"user_id"`
	OK     bool  `json:"ok"`
}

type BulkCreditsRequest struct {
	UserIDs []int64 `json:"user_ids"`
	Amount  int64   `json:"amount"`
	ActorID int64   `json:"actor_id"`
}

type BulkVIPRequest struct {
	UserIDs []int64 `json:"user_ids"`
	Days    int     `json:"days"`
	ActorID int64   `json:"actor_id"`
}

type BulkResponse struct {
	Updated []int64 `json:"updated"`
	Failed  []int64 `json:"failed,omitempty"`
}

type BalanceResponse struct {
	UserID  int64 `json:"user_id"`
	Credits int64 `json:"credits"`
}

type VIPStatusResponse struct {
	UserID int64      `json:"user_id"`
	Active bool       `json:"active"`
	Expiry *time.Time `json:"expiry,omitempty"`
}

type AddCreditsRequest struct {
	Amount  int64 `json:"amount"`
	ActorID int64 `json:"actor_id"`
}

type AddCreditsResponse struct {
	UserID     int64 `json:"user_id"`
	NewBalance int64 `json:"new_balance"`
}

type GrantVIPRequest struct {
	Days    int   `json:"days"`
	ActorID int64 `json:"actor_id"`
}

type GrantVIPResponse struct {
	UserID int64     `json:"user_id"`
	Expiry time.Time `json:"expiry"`
}
