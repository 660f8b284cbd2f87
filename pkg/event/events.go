package event

const (
	DocumentSaved = "document.saved"
	UsageRecorded = "usage.recorded"
)

// DocumentSavedEvent is emitted after a user's document was written.
type DocumentSavedEvent struct {
	UserID     string `json:"-"`
	Collection string `json:"collection"`
}

func (e DocumentSavedEvent) EventName() string { return DocumentSaved }
func (e DocumentSavedEvent) Owner() string     { return e.UserID }

// UsageRecordedEvent is emitted after a completion was added to a user's
// token totals.
type UsageRecordedEvent struct {
	UserID       string `json:"-"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
}

func (e UsageRecordedEvent) EventName() string { return UsageRecorded }
func (e UsageRecordedEvent) Owner() string     { return e.UserID }
