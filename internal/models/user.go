package models

import "time"

// User represents a user account in the system.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never expose this to the client
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Location     string `json:"location,omitempty"`
	Bio          string `json:"bio,omitempty"`
	JobTitle     string `json:"jobTitle,omitempty"`
	Company      string `json:"company,omitempty"`
	// ProfilePicture holds a URL or data reference chosen by the client.
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
