package models

import "time"

// UserMetrics is the per-user token usage document. It is only ever updated
// by increments.
type UserMetrics struct {
	UserID             string     `json:"userId,omitempty" bson:"userId"`
	TotalInputTokens   int64      `json:"totalInputTokens" bson:"totalInputTokens"`
	TotalOutputTokens  int64      `json:"totalOutputTokens" bson:"totalOutputTokens"`
	TotalRequests      int64      `json:"totalRequests,omitempty" bson:"totalRequests"`
	LastInputTokens    int64      `json:"lastInputTokens,omitempty" bson:"lastInputTokens"`
	LastOutputTokens   int64      `json:"lastOutputTokens,omitempty" bson:"lastOutputTokens"`
	LastUpdated        *time.Time `json:"lastUpdated" bson:"lastUpdated"`
	FirstInteractionAt *time.Time `json:"firstInteractionAt,omitempty" bson:"firstInteractionAt"`
}

// Usage is the token count of one completed model call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Empty reports whether the call reported no tokens at all.
func (u Usage) Empty() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0
}
