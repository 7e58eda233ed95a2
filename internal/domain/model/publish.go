package model

import "time"

// PublishSlot is a daily UTC window [Hour:MinuteLow, Hour:MinuteHigh].
type PublishSlot struct {
	Hour       int
	MinuteLow  int
	MinuteHigh int
}

// PublishRecord is appended to the ledger once a publish is acknowledged.
type PublishRecord struct {
	VideoID     string
	ExternalID  string
	PublishedAt time.Time
	ScheduledAt time.Time
}

// VideoMetadata is what the publish collaborator receives with the file.
type VideoMetadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Visibility  string
	// PublishAt is the scheduled publication time; zero publishes immediately.
	PublishAt time.Time
}
