package models

// Identity is the authenticated user as seen by the client.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
