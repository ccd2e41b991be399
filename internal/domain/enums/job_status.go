package enums

type JobStatus string

const (
	JobStatusDraft  JobStatus = "draft"
	JobStatusActive JobStatus = "active"
	JobStatusPaused JobStatus = "paused"
	JobStatusClosed JobStatus = "closed"
)

type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeLink MessageType = "link"
)
