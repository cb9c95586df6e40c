package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	opFetchFeedingEvents = "fetch_feeding_events"
	opCreateFeedingEvent = "create_feeding_event"
	opUpdateFeedingEvent = "update_feeding_event"
	opDeleteFeedingEvent = "delete_feeding_event"
)

// FeedingCreate is the payload of a new scheduled feed.
type FeedingCreate struct {
	TankID    string
	FeedTime  time.Time
	QuantityG float64
}

// FeedingUpdate addresses an event by its original Timestamp. NewFeedTime
// is set only when the scheduled time moves.
type FeedingUpdate struct {
	TankID      string
	Timestamp   string
	NewFeedTime *time.Time
	QuantityG   float64
}

type createBody struct {
	TankID        string  `json:"tank_id"`
	FeedQuantityG float64 `json:"feed_quantity_g"`
	FeedTime      string  `json:"feedtime"`
	Timestamp     string  `json:"timestamp"`
	Status        string  `json:"status"`
}

type updateBody struct {
	TankID        string  `json:"tank_id"`
	Timestamp     string  `json:"timestamp"`
	NewTimestamp  string  `json:"new_timestamp,omitempty"`
	FeedQuantityG float64 `json:"feed_quantity_g"`
	Status        string  `json:"status"`
}

// FetchFeedingEvents accepts a bare array or {items:[...]}. Any other JSON
// shape yields an empty list and a warning.
func (c *Client) FetchFeedingEvents(ctx context.Context, tankID, deviceID string) ([]models.FeedingEvent, error) {
	query := map[string]string{"tank_id": tankID}
	if deviceID != "" {
		query["device_id"] = deviceID
	}
	body, err := c.read(ctx, opFetchFeedingEvents, pathFeedingEvents, query)
	if err != nil {
		return nil, err
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.Parse(opFetchFeedingEvents, err)
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		if arr, ok := v["items"].([]interface{}); ok {
			items = arr
		}
	}
	if items == nil {
		c.log.Warnw("feeding_events_unknown_shape", "tank_id", tankID, "body", truncate(string(body), 200))
		return []models.FeedingEvent{}, nil
	}

	events := make([]models.FeedingEvent, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		ev, err := decodeFeedingEvent(tankID, m)
		if err != nil {
			c.log.Warnw("feeding_event_skipped", "tank_id", tankID, "err", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeFeedingEvent(tankID string, m map[string]interface{}) (models.FeedingEvent, error) {
	ev := models.FeedingEvent{
		TankID:    tankID,
		Timestamp: stringOf(m, "timestamp"),
		Status:    models.FeedingStatus(strings.ToLower(stringOf(m, "status"))),
	}
	if id := stringOf(m, "tank_id", "tankId"); id != "" {
		ev.TankID = id
	}
	if ev.Status == "" {
		ev.Status = models.FeedingPending
	}

	scheduled, ok := lookup(m, "feedtime", "feed_time", "feedTime", "feed_time_scheduled", "timestamp")
	if !ok {
		return models.FeedingEvent{}, apperr.Parsef(opFetchFeedingEvents, "feeding event without scheduled time")
	}
	t, err := parseTimestamp(scheduled)
	if err != nil {
		return models.FeedingEvent{}, apperr.Parse(opFetchFeedingEvents, err)
	}
	ev.FeedTimeScheduled = t
	if ev.Timestamp == "" {
		ev.Timestamp = stringOf(m, "feedtime", "feed_time", "feedTime", "feed_time_scheduled")
	}

	if ev.QuantityGrams, err = floatOrZero(m, "feed_quantity_g", "feedQuantityG", "quantity_g"); err != nil {
		return models.FeedingEvent{}, apperr.Parse(opFetchFeedingEvents, err)
	}
	if created, ok := lookup(m, "created_at", "createdAt"); ok {
		ev.CreatedAt, _ = parseTimestamp(created)
	}
	return ev, nil
}

// CreateFeedingEvent POSTs a pending feed. The scheduled time doubles as the
// event's identity timestamp.
func (c *Client) CreateFeedingEvent(ctx context.Context, in FeedingCreate) (models.FeedingEvent, error) {
	stamp := formatFeedTime(in.FeedTime)
	body, err := c.write(ctx, opCreateFeedingEvent, resty.MethodPost, pathFeedingEvents, nil, createBody{
		TankID:        in.TankID,
		FeedQuantityG: in.QuantityG,
		FeedTime:      stamp,
		Timestamp:     stamp,
		Status:        string(models.FeedingPending),
	})
	if err != nil {
		return models.FeedingEvent{}, err
	}

	created := models.FeedingEvent{
		TankID:            in.TankID,
		Timestamp:         stamp,
		FeedTimeScheduled: in.FeedTime.UTC(),
		QuantityGrams:     in.QuantityG,
		Status:            models.FeedingPending,
	}
	var m map[string]interface{}
	if json.Unmarshal(body, &m) == nil && m != nil {
		if item, ok := m["item"].(map[string]interface{}); ok {
			m = item
		}
		if ev, err := decodeFeedingEvent(in.TankID, m); err == nil {
			created = ev
		}
	}
	return created, nil
}

// UpdateFeedingEvent PUTs a move-or-update of a pending event.
func (c *Client) UpdateFeedingEvent(ctx context.Context, in FeedingUpdate) error {
	ub := updateBody{
		TankID:        in.TankID,
		Timestamp:     in.Timestamp,
		FeedQuantityG: in.QuantityG,
		Status:        string(models.FeedingPending),
	}
	if in.NewFeedTime != nil {
		ub.NewTimestamp = formatFeedTime(*in.NewFeedTime)
	}
	_, err := c.write(ctx, opUpdateFeedingEvent, resty.MethodPut, pathFeedingEvents, nil, ub)
	return err
}

// DeleteFeedingEvent removes an event addressed by query parameters.
func (c *Client) DeleteFeedingEvent(ctx context.Context, tankID, timestamp string) error {
	_, err := c.write(ctx, opDeleteFeedingEvent, resty.MethodDelete, pathFeedingEvents, map[string]string{
		"tank_id":   tankID,
		"timestamp": timestamp,
	}, nil)
	return err
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut] + "..."
}
