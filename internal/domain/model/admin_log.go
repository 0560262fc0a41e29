package model

import (
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
)

// AdminLogEntry is an append-only record of a privileged action. Entries are
// never mutated; the sweep job may delete entries past the retention window.
type AdminLogEntry struct {
	ID         string            `bson:"_id" json:"log_id"`
	Action     enums.AuditAction `bson:"action" json:"action"`
	ActorID    int64             `bson:"actor_id" json:"actor_id"`
	UserID     int64             `bson:"user_id" json:"user_id"`
	RequestID  string            `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Amount     int64             `bson:"amount,omitempty" json:"amount,omitempty"`
	Days       int               `bson:"days,omitempty" json:"days,omitempty"`
	NewBalance int64             `bson:"new_balance,omitempty" json:"new_balance,omitempty"`
	NewExpiry  time.Time         `bson:"new_expiry,omitempty" json:"new_expiry,omitempty"`
	Reason     string            `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt  time.Time         `bson:"created_at" json:"created_at"`
}
