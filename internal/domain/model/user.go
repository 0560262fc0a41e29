package model

import "time"

// User is the account record stored under users/{id}. Credits never go
// negative; VIPExpiry is meaningful only while VIPActive is (or just was) true.
type User struct {
	ID         int64     `bson:"_id" json:"user_id"`
	Name       string    `bson:"name,omitempty" json:"name,omitempty"`
	Username   string    `bson:"username,omitempty" json:"username,omitempty"`
	Credits    int64     `bson:"credits" json:"credits"`
	VIPActive  bool      `bson:"vip_active" json:"vip_active"`
	VIPExpiry  time.Time `bson:"vip_expiry,omitempty" json:"vip_expiry,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	LastActive time.Time `bson:"last_active" json:"last_active"`
}

func NewUser(id int64, now time.Time) User {
	return User{
		ID:         id,
		Credits:    0,
		VIPActive:  false,
		CreatedAt:  now.UTC(),
		LastActive: now.UTC(),
	}
}
