// Package prefs persists operator-side preferences (the last-used feed form
// values) in a small key-value store.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"aquarium_dashboard/internal/models"
)

var ErrNotFound = errors.New("preference not found")

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

func feedDefaultsKey(tankID string) string {
	return "feed_defaults:" + tankID
}

// LoadFeedDefaults returns the zero value when nothing was saved yet.
func LoadFeedDefaults(ctx context.Context, st Store, tankID string) (models.FeedDefaults, error) {
	raw, err := st.Get(ctx, feedDefaultsKey(tankID))
	if errors.Is(err, ErrNotFound) {
		return models.FeedDefaults{}, nil
	}
	if err != nil {
		return models.FeedDefaults{}, err
	}
	var d models.FeedDefaults
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return models.FeedDefaults{}, fmt.Errorf("decode feed defaults: %w", err)
	}
	return d, nil
}

func SaveFeedDefaults(ctx context.Context, st Store, tankID string, d models.FeedDefaults) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode feed defaults: %w", err)
	}
	return st.Set(ctx, feedDefaultsKey(tankID), string(b))
}
