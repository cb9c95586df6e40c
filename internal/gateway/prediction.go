package gateway

import (
	"context"
	"encoding/json"

	"aquarium_dashboard/internal/apperr"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cast"
)

const opFetchAmmoniaPrediction = "fetch_ammonia_prediction"

// PredictionRequest is the input of the ammonia model.
type PredictionRequest struct {
	TankVolumeLiters float64 `json:"tank_volume_liters"`
	FishSmall        int     `json:"fish_small"`
	FishMedium       int     `json:"fish_medium"`
	FishLarge        int     `json:"fish_large"`
	FishXLarge       int     `json:"fish_xlarge"`
	FeedQuantityG    float64 `json:"feed_quantity_g"`
}

// FetchAmmoniaPrediction asks the prediction endpoint for the expected
// ammonia level in ppm. Error details include the response body text.
func (c *Client) FetchAmmoniaPrediction(ctx context.Context, in PredictionRequest) (float64, error) {
	body, err := c.write(ctx, opFetchAmmoniaPrediction, resty.MethodPost, c.predictionURL, nil, in)
	if err != nil {
		return 0, err
	}

	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return 0, apperr.Parse(opFetchAmmoniaPrediction, err)
	}
	v, ok := lookup(m, "prediction_ammonia")
	if !ok {
		return 0, apperr.Parsef(opFetchAmmoniaPrediction, "response has no prediction_ammonia: %s", truncate(string(body), 200))
	}
	// some model servers answer with a one-element array
	if arr, isArr := v.([]interface{}); isArr && len(arr) > 0 {
		v = arr[0]
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, apperr.Parse(opFetchAmmoniaPrediction, err)
	}
	return f, nil
}
