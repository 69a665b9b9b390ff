package domain

import "time"

// Transaction Model
type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`          // Primary key, monotonically increasing
	Sender    string    `gorm:"not null" json:"sender"`        // Username of the sender
	Receiver  string    `gorm:"not null" json:"receiver"`      // Username of the receiver
	Amount    int64     `gorm:"not null" json:"amount"`        // Transferred credits, always positive
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created"` // Timestamp of creation
}
