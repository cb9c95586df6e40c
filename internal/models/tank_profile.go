package models

// FishCounts holds stocked fish per size class.
type FishCounts struct {
	Small      int `json:"small"`
	Medium     int `json:"medium"`
	Large      int `json:"large"`
	ExtraLarge int `json:"extra_large"`
}

// TankProfile is the configuration record of a tank. It is always replaced
// wholesale, never partially mutated.
type TankProfile struct {
	TankID       string   `json:"tank_id"`
	VolumeLiters *float64 `json:"volume_liters"`
	// AppropriateWaterLevel carries no unit tag: percent or centimeters.
	AppropriateWaterLevel *float64   `json:"appropriate_water_level"`
	FishCounts            FishCounts `json:"fish_counts"`
}
