package model

import (
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
)

// Request is a user-submitted ask to trade credits for a VIP grant,
// adjudicated by an admin. It transitions out of pending exactly once.
type Request struct {
	ID          string              `bson:"_id" json:"request_id"`
	UserID      int64               `bson:"user_id" json:"user_id"`
	Payload     string              `bson:"payload" json:"payload"`
	Days        int                 `bson:"days" json:"days"`
	Price       int64               `bson:"price" json:"price"`
	Status      enums.RequestStatus `bson:"status" json:"status"`
	Reason      string              `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	ProcessedAt time.Time           `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	ProcessedBy int64               `bson:"processed_by,omitempty" json:"processed_by,omitempty"`
	NewBalance  int64               `bson:"new_balance,omitempty" json:"new_balance,omitempty"`
	NewExpiry   time.Time           `bson:"new_expiry,omitempty" json:"new_expiry,omitempty"`
}
