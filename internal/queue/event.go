// Package queue defines message payloads exchanged over the message broker.
package queue

// ReportGeneratedEvent is published after a report PDF is rendered and
// streamed to its owner. It carries enough information for downstream
// consumers to log, bill, or trigger analytics without querying the
// primary database.
type ReportGeneratedEvent struct {
    InspectionID  uint64 `json:"inspection_id"`
    OwnerID       uint64 `json:"owner_id"`
    Address       string `json:"address"`
    PhotoCount    int    `json:"photo_count"`
    FailedFetches int    `json:"failed_fetches"`
    Pages         int    `json:"pages"`
    SizeBytes     int    `json:"size_bytes"`
    GeneratedAt   string `json:"generated_at"`
}
