package models

import "time"

// WaitlistUser is a user on the IAM waitlist
type WaitlistUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WaitlistResponse is the body of the IAM waitlist endpoint
type WaitlistResponse struct {
	Waitlist []WaitlistUser `json:"waitlist"`
}
