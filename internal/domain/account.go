package domain

// Account Model
type Account struct {
	ID       uint   `gorm:"primaryKey" json:"-"`               // Primary key
	Username string `gorm:"unique;not null" json:"username"`   // Unique username
	Password string `gorm:"not null" json:"-"`                 // Hashed password
	Balance  int64  `gorm:"not null;default:0" json:"credits"` // Credit balance
	Role     string `gorm:"not null;default:user" json:"role"` // Role: user or admin
}

// LeaderboardEntry is one row of the balance leaderboard
type LeaderboardEntry struct {
	Username string `json:"username"` // Account username
	Balance  int64  `json:"credits"`  // Credit balance
}
