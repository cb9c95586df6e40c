package models

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityCaution Severity = "caution"
	SeverityDanger  Severity = "danger"
	// SeveritySuccess marks the synthetic "all clear" record.
	SeveritySuccess Severity = "success"
)

// Alert is derived from the latest reading; it is never persisted.
type Alert struct {
	Severity   Severity `json:"severity"`
	Title      string   `json:"title"`
	Value      string   `json:"value"`
	Suggestion string   `json:"suggestion"`
}

// Prediction is the ammonia forecast shown on the monitoring page.
type Prediction struct {
	AmmoniaPPM  float64   `json:"ammonia_ppm"`
	QuantityG   float64   `json:"quantity_g"`
	RequestedAt time.Time `json:"requested_at"`
}

// Notice is an operator-facing message (errors surfaced verbatim).
type Notice struct {
	Level   string    `json:"level"` // info | error
	Scope   string    `json:"scope"` // feeding | settings | prediction
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
