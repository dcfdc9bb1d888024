package models

import "time"

// ShortLink is the model for the 'short_links' table.
type ShortLink struct {
	ID        int64     `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	TargetURL string    `json:"targetUrl" db:"target_url"`
	UserID    *int64    `json:"userId,omitempty" db:"user_id"`
	Clicks    int64     `json:"clicks" db:"clicks"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ToolGeneration logs one mini-tool run for the usage reports.
type ToolGeneration struct {
	ID        int64     `json:"id" db:"id"`
	UserID    *int64    `json:"userId,omitempty" db:"user_id"`
	Tool      string    `json:"tool" db:"tool"`
	Prompt    string    `json:"prompt" db:"prompt"`
	Output    string    `json:"output" db:"output"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
