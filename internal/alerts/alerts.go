// Package alerts derives threshold alerts from the latest reading.
package alerts

import (
	"fmt"

	"aquarium_dashboard/internal/models"
)

// Fixed thresholds.
const (
	TempMinC       = 24.0
	TempMaxC       = 30.0
	PHMin          = 6.5
	PHMax          = 8.0
	AmmoniaMaxPPM  = 0.25
	WaterLevelPct  = 80.0
	levelCmMinimum = 50.0 // appropriate levels at or above this are read as cm
	levelCmSlack   = 1.5
	levelCmRatio   = 0.8
)

// Derive is pure: identical inputs yield identical output. The result is
// never empty.
func Derive(latest *models.Reading, profile *models.TankProfile) []models.Alert {
	if latest == nil {
		return []models.Alert{{
			Severity:   models.SeverityInfo,
			Title:      "No data available",
			Value:      "-",
			Suggestion: "Check that the sensor device is online and reporting.",
		}}
	}

	var out []models.Alert
	r := *latest

	switch {
	case r.Temperature < TempMinC:
		out = append(out, models.Alert{
			Severity:   models.SeverityDanger,
			Title:      "Temperature too low",
			Value:      fmt.Sprintf("%.1f°C (min %.0f°C)", r.Temperature, TempMinC),
			Suggestion: "Check the heater and raise the water temperature gradually.",
		})
	case r.Temperature > TempMaxC:
		out = append(out, models.Alert{
			Severity:   models.SeverityDanger,
			Title:      "Temperature too high",
			Value:      fmt.Sprintf("%.1f°C (max %.0f°C)", r.Temperature, TempMaxC),
			Suggestion: "Turn off the heater, improve aeration and shade the tank.",
		})
	}

	switch {
	case r.PH < PHMin:
		out = append(out, models.Alert{
			Severity:   models.SeverityCaution,
			Title:      "pH too low",
			Value:      fmt.Sprintf("%.2f (min %.1f)", r.PH, PHMin),
			Suggestion: "Do a partial water change and check buffering capacity.",
		})
	case r.PH > PHMax:
		out = append(out, models.Alert{
			Severity:   models.SeverityCaution,
			Title:      "pH too high",
			Value:      fmt.Sprintf("%.2f (max %.1f)", r.PH, PHMax),
			Suggestion: "Do a partial water change with softer water.",
		})
	}

	if r.Ammonia > AmmoniaMaxPPM {
		out = append(out, models.Alert{
			Severity:   models.SeverityDanger,
			Title:      "Ammonia too high",
			Value:      fmt.Sprintf("%.2f ppm (max %.2f ppm)", r.Ammonia, AmmoniaMaxPPM),
			Suggestion: "Change 25-50% of the water and reduce feeding.",
		})
	}

	if a, ok := waterLevelAlert(r.WaterLevel, profile); ok {
		out = append(out, a)
	}

	if len(out) == 0 {
		return []models.Alert{{
			Severity:   models.SeveritySuccess,
			Title:      "All parameters within safe ranges",
			Value:      "OK",
			Suggestion: "No action needed.",
		}}
	}
	return out
}

// waterLevelAlert resolves the unit of the appropriate level heuristically:
// the profile does not say whether it is percent or centimeters.
func waterLevelAlert(level float64, profile *models.TankProfile) (models.Alert, bool) {
	if profile == nil || profile.AppropriateWaterLevel == nil {
		return models.Alert{}, false
	}
	appropriate := *profile.AppropriateWaterLevel

	if appropriate >= levelCmMinimum && level <= levelCmSlack*appropriate {
		limit := levelCmRatio * appropriate
		if level < limit {
			return models.Alert{
				Severity:   models.SeverityCaution,
				Title:      "Water level low",
				Value:      fmt.Sprintf("%.1f cm (min %.1f cm)", level, limit),
				Suggestion: "Top up the tank with conditioned water.",
			}, true
		}
		return models.Alert{}, false
	}

	if level >= 0 && level <= 100 && level < WaterLevelPct {
		return models.Alert{
			Severity:   models.SeverityCaution,
			Title:      "Water level low",
			Value:      fmt.Sprintf("%.0f%% (min %.0f%%)", level, WaterLevelPct),
			Suggestion: "Top up the tank with conditioned water.",
		}, true
	}
	return models.Alert{}, false
}
