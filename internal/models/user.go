package models

// User is a local account.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Credential couples a user with its password hash. It is only ever
// persisted locally.
type Credential struct {
	User         User   `json:"user"`
	PasswordHash string `json:"password_hash"`
}
