package db

import "time"

// UserMetrics is the token usage row of one user. Totals only grow.
type UserMetrics struct {
	UserID             string    `gorm:"primaryKey;size:191"`
	TotalInputTokens   int64     `gorm:"not null;default:0"`
	TotalOutputTokens  int64     `gorm:"not null;default:0"`
	TotalRequests      int64     `gorm:"not null;default:0"`
	LastInputTokens    int64     `gorm:"not null;default:0"`
	LastOutputTokens   int64     `gorm:"not null;default:0"`
	LastUpdated        time.Time `gorm:"not null"`
	FirstInteractionAt time.Time `gorm:"not null"`
}

func (UserMetrics) TableName() string {
	return CollectionMetrics
}
