package models

// User is the identity record owned by the Account Service; the session
// keeps a read-through local copy.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserStats struct {
	StoriesGenerated  int `json:"storiesGenerated"`
	CurrentStreak     int `json:"currentStreak"`
	LongestStreak     int `json:"longestStreak"`
	TotalStoriesSaved int `json:"totalStoriesSaved"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
