package models

import "time"

// Chart channels rendered from a reading window.
const (
	ChannelTemperature = "temperature"
	ChannelPH          = "ph"
	ChannelAmmonia     = "ammonia"
	ChannelWaterLevel  = "water_level"

	// placeholder-only channels
	ChannelProfile    = "profile"
	ChannelPrediction = "prediction"
)

// SeriesChannels lists the channels that carry a time series, in render order.
var SeriesChannels = []string{ChannelTemperature, ChannelPH, ChannelAmmonia, ChannelWaterLevel}

// Reading is one timestamped sensor sample.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	PH          float64   `json:"ph"`
	Ammonia     float64   `json:"ammonia"`
	WaterLevel  float64   `json:"water_level"`
}

// Value returns the reading's value for a series channel.
func (r Reading) Value(channel string) (float64, bool) {
	switch channel {
	case ChannelTemperature:
		return r.Temperature, true
	case ChannelPH:
		return r.PH, true
	case ChannelAmmonia:
		return r.Ammonia, true
	case ChannelWaterLevel:
		return r.WaterLevel, true
	}
	return 0, false
}

// ReadingWindow is the ascending sequence of readings fetched for one timeline.
type ReadingWindow struct {
	Timeline   Timeline  `json:"timeline"`
	Items      []Reading `json:"items"`
	RangeStart time.Time `json:"range_start"`
	RangeEnd   time.Time `json:"range_end"`
}

// Latest returns the most recent reading of the window.
func (w ReadingWindow) Latest() (Reading, bool) {
	if len(w.Items) == 0 {
		return Reading{}, false
	}
	return w.Items[len(w.Items)-1], true
}

// Series projects the window onto one chart channel.
func (w ReadingWindow) Series(channel string) []Point {
	points := make([]Point, 0, len(w.Items))
	for _, r := range w.Items {
		if v, ok := r.Value(channel); ok {
			points = append(points, Point{X: r.Timestamp, Y: v})
		}
	}
	return points
}

// Point is one chart sample consumed by the renderer.
type Point struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}
