package gateway

import (
	"context"
	"encoding/json"
	"sort"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/models"
)

const opFetchReadings = "fetch_readings"

type readingsBody struct {
	Items *[]map[string]interface{} `json:"items"`
	Start interface{}               `json:"start"`
	End   interface{}               `json:"end"`
	Count int                       `json:"count"`
}

// FetchReadings returns the reading window for one timeline, sorted
// ascending by timestamp.
func (c *Client) FetchReadings(ctx context.Context, deviceID string, tl models.Timeline) (models.ReadingWindow, error) {
	body, err := c.read(ctx, opFetchReadings, pathReadings, map[string]string{
		"device_id": deviceID,
		"period":    tl.Period(),
	})
	if err != nil {
		return models.ReadingWindow{}, err
	}

	var rb readingsBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return models.ReadingWindow{}, apperr.Parse(opFetchReadings, err)
	}
	if rb.Items == nil {
		return models.ReadingWindow{}, apperr.Parsef(opFetchReadings, "response has no items array")
	}

	w := models.ReadingWindow{Timeline: tl, Items: make([]models.Reading, 0, len(*rb.Items))}
	skipped := 0
	for _, raw := range *rb.Items {
		r, err := decodeReading(raw)
		if err != nil {
			skipped++
			continue
		}
		w.Items = append(w.Items, r)
	}
	if skipped > 0 {
		c.log.Warnw("readings_items_skipped", "device_id", deviceID, "period", tl.Period(), "skipped", skipped)
	}
	sort.SliceStable(w.Items, func(i, j int) bool { return w.Items[i].Timestamp.Before(w.Items[j].Timestamp) })

	if rb.Start != nil {
		w.RangeStart, _ = parseTimestamp(rb.Start)
	}
	if rb.End != nil {
		w.RangeEnd, _ = parseTimestamp(rb.End)
	}
	return w, nil
}

func decodeReading(raw map[string]interface{}) (models.Reading, error) {
	ts, ok := lookup(raw, "timestamp", "ts", "time")
	if !ok {
		return models.Reading{}, apperr.Parsef(opFetchReadings, "reading without timestamp")
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return models.Reading{}, apperr.Parse(opFetchReadings, err)
	}

	r := models.Reading{Timestamp: t}
	fields := []struct {
		dst  *float64
		keys []string
	}{
		{&r.Temperature, []string{"temperature", "temp"}},
		{&r.PH, []string{"ph", "pH"}},
		{&r.Ammonia, []string{"ammonia"}},
		{&r.WaterLevel, []string{"water_level", "waterLevel"}},
	}
	for _, f := range fields {
		if *f.dst, err = floatOrZero(raw, f.keys...); err != nil {
			return models.Reading{}, apperr.Parse(opFetchReadings, err)
		}
	}
	return r, nil
}
