package models

import "time"

// SettingYouTubeURL is the settings key the URL-change monitor watches
// (spec §3, §4.4).
const SettingYouTubeURL = "youtube_url"

// SystemSetting is an opaque key/value operational setting (spec §3).
type SystemSetting struct {
	Key         string
	Value       string
	Description string
	UpdatedAt   time.Time
}

// ETLStatus is the terminal status of one execution-log row (spec §4.5).
type ETLStatus string

const (
	ETLStatusCompleted ETLStatus = "completed"
	ETLStatusFailed    ETLStatus = "failed"
)

// maxErrorMessageLen is the truncation bound for ETLExecutionLog.ErrorMessage
// (spec §4.5: "truncated to 500 characters").
const maxErrorMessageLen = 500

// ETLExecutionLog is one row recording a completed or failed job run
// (spec §3, §4.5).
type ETLExecutionLog struct {
	ID               string
	JobID            string
	StartedAt        time.Time
	CompletedAt      time.Time
	DurationSeconds  float64
	Status           ETLStatus
	RecordsProcessed int
	ErrorMessage     string
	Metadata         map[string]any
}

// TruncateErrorMessage clamps msg to the execution log's 500-character bound.
func TruncateErrorMessage(msg string) string {
	r := []rune(msg)
	if len(r) <= maxErrorMessageLen {
		return msg
	}
	return string(r[:maxErrorMessageLen])
}
