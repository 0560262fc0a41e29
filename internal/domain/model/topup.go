package model

import (
	"time"

	"github.com/thuzarw/kspvpn-bot/internal/domain/enums"
)

// TopUp is a user-submitted ask to have credits added after an external
// payment, adjudicated by an admin against the attached proof.
type TopUp struct {
	ID          string            `bson:"_id" json:"topup_id"`
	UserID      int64             `bson:"user_id" json:"user_id"`
	Amount      int64             `bson:"amount" json:"amount"`
	Method      string            `bson:"method" json:"method"`
	Proof       string            `bson:"proof,omitempty" json:"proof,omitempty"`
	Status      enums.TopUpStatus `bson:"status" json:"status"`
	Reason      string            `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
	ProcessedAt time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	ProcessedBy int64             `bson:"processed_by,omitempty" json:"processed_by,omitempty"`
	NewBalance  int64             `bson:"new_balance,omitempty" json:"new_balance,omitempty"`
}
