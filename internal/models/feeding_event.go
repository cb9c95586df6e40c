package models

import "time"

type FeedingStatus string

const (
	FeedingPending FeedingStatus = "pending"
	FeedingSuccess FeedingStatus = "success"
	FeedingFailed  FeedingStatus = "failed"
)

// FeedingEvent is a scheduled feed. The backend has no event id: an event is
// addressed by (TankID, Timestamp), where Timestamp is the scheduled time
// string exactly as the backend stored it on creation.
type FeedingEvent struct {
	TankID            string        `json:"tank_id"`
	Timestamp         string        `json:"timestamp"`
	FeedTimeScheduled time.Time     `json:"feed_time_scheduled"`
	QuantityGrams     float64       `json:"quantity_g"`
	Status            FeedingStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

// FeedingRow is the table view model of a feeding event.
type FeedingRow struct {
	Timestamp   string        `json:"timestamp"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	QuantityG   float64       `json:"quantity_g"`
	Status      FeedingStatus `json:"status"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
	Editable    bool          `json:"editable"`
}

func (e FeedingEvent) Row() FeedingRow {
	row := FeedingRow{
		Timestamp:   e.Timestamp,
		ScheduledAt: e.FeedTimeScheduled,
		QuantityG:   e.QuantityGrams,
		Status:      e.Status,
		Editable:    e.Status == FeedingPending,
	}
	if !e.CreatedAt.IsZero() {
		created := e.CreatedAt
		row.CreatedAt = &created
	}
	return row
}

// Rows projects events onto table rows preserving order.
func Rows(events []FeedingEvent) []FeedingRow {
	rows := make([]FeedingRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, e.Row())
	}
	return rows
}

// FeedDefaults are the last-used feed form values restored on load.
type FeedDefaults struct {
	FeedTime  string  `json:"feed_time,omitempty"`
	QuantityG float64 `json:"quantity_g,omitempty"`
}
