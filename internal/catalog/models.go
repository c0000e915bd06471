package catalog

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle of a catalog title.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Item represents one title persisted in the catalog.
type Item struct {
	ID              int64
	Slug            string
	Title           string
	BriefPath       string
	Status          Status
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent int
	ProgressMessage string
	FinalFile       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SetFailed marks the item failed with the supplied message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = strings.TrimSpace(message)
}

var labelCaser = cases.Title(language.English)

// StageLabel renders a stage id as a human-readable progress label.
func StageLabel(stageID string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(stageID, "_", " "))
	if cleaned == "" {
		return ""
	}
	return labelCaser.String(cleaned)
}
