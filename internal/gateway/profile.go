package gateway

import (
	"context"
	"encoding/json"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	opFetchTankProfile = "fetch_tank_profile"
	opSaveTankProfile  = "save_tank_profile"
)

// FetchTankProfile reads the tank profile. Absent fields map to nil/zero.
func (c *Client) FetchTankProfile(ctx context.Context, tankID string) (models.TankProfile, error) {
	body, err := c.read(ctx, opFetchTankProfile, pathTankProfile, map[string]string{"tank_id": tankID})
	if err != nil {
		return models.TankProfile{}, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.TankProfile{}, apperr.Parse(opFetchTankProfile, err)
	}
	if raw == nil {
		return models.TankProfile{}, apperr.Parsef(opFetchTankProfile, "profile body is not an object")
	}
	return decodeProfile(tankID, raw)
}

func decodeProfile(tankID string, raw map[string]interface{}) (models.TankProfile, error) {
	p := models.TankProfile{TankID: tankID}
	if id := stringOf(raw, "tank_id", "tankId"); id != "" {
		p.TankID = id
	}

	var err error
	if p.VolumeLiters, err = optFloat(raw, "tank_volume_liters", "volume_liters", "volumeLiters"); err != nil {
		return models.TankProfile{}, apperr.Parse(opFetchTankProfile, err)
	}
	if p.AppropriateWaterLevel, err = optFloat(raw, "appropriate_water_level", "appropriateWaterLevel"); err != nil {
		return models.TankProfile{}, apperr.Parse(opFetchTankProfile, err)
	}

	// fish counts arrive either nested or flat
	src := raw
	small, medium, large, xlarge := []string{"fish_small"}, []string{"fish_medium"}, []string{"fish_large"}, []string{"fish_xlarge", "fish_extra_large"}
	if nested, ok := lookup(raw, "fish_counts", "fishCounts"); ok {
		if m, isMap := nested.(map[string]interface{}); isMap {
			src = m
			small, medium, large = []string{"small"}, []string{"medium"}, []string{"large"}
			xlarge = []string{"extra_large", "extraLarge", "xlarge"}
		}
	}
	counts := []struct {
		dst  *int
		keys []string
	}{
		{&p.FishCounts.Small, small},
		{&p.FishCounts.Medium, medium},
		{&p.FishCounts.Large, large},
		{&p.FishCounts.ExtraLarge, xlarge},
	}
	for _, fc := range counts {
		if *fc.dst, err = intOrZero(src, fc.keys...); err != nil {
			return models.TankProfile{}, apperr.Parse(opFetchTankProfile, err)
		}
	}
	return p, nil
}

type profileBody struct {
	TankID                string   `json:"tank_id"`
	TankVolumeLiters      *float64 `json:"tank_volume_liters"`
	AppropriateWaterLevel *float64 `json:"appropriate_water_level"`
	FishSmall             int      `json:"fish_small"`
	FishMedium            int      `json:"fish_medium"`
	FishLarge             int      `json:"fish_large"`
	FishXLarge            int      `json:"fish_xlarge"`
}

// SaveTankProfile PUTs the full profile. No response body is required.
func (c *Client) SaveTankProfile(ctx context.Context, p models.TankProfile) error {
	_, err := c.write(ctx, opSaveTankProfile, resty.MethodPut, pathTankProfile, nil, profileBody{
		TankID:                p.TankID,
		TankVolumeLiters:      p.VolumeLiters,
		AppropriateWaterLevel: p.AppropriateWaterLevel,
		FishSmall:             p.FishCounts.Small,
		FishMedium:            p.FishCounts.Medium,
		FishLarge:             p.FishCounts.Large,
		FishXLarge:            p.FishCounts.ExtraLarge,
	})
	return err
}
