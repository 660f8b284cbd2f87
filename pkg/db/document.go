// Database models for per-user documents
package db

import "time"

// Document holds one per-user JSON document of a collection.
type Document struct {
	Collection string    `gorm:"primaryKey;size:32"`
	UserID     string    `gorm:"primaryKey;size:191"`
	Body       []byte    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}

// Collection names, shared by every store backend.
const (
	CollectionGraphs   = "graphs"
	CollectionCards    = "cards"
	CollectionChats    = "chats"
	CollectionAnalyses = "analyses"
	CollectionMetrics  = "user_metrics"
)
