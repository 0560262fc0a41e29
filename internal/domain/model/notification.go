package model

import "time"

// Notification is a stored side-effect payload the messaging front end picks
// up and delivers to the user (approval results, credit grants, rejections).
type Notification struct {
	ID        string         `bson:"_id" json:"notification_id"`
	UserID    int64          `bson:"user_id" json:"user_id"`
	Kind      string         `bson:"kind" json:"kind"`
	Message   string         `bson:"message" json:"message"`
	Data      map[string]any `bson:"data,omitempty" json:"data,omitempty"`
	Read      bool           `bson:"read" json:"read"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}
