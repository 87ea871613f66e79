package agency

import (
	"context"

	"github.com/roach88/tourdesk/internal/schema"
)

// GetSettings returns the application settings, or DefaultAppSettings when
// none were saved.
func (db *DB) GetSettings(ctx context.Context) (AppSettings, error) {
	s, ok, err := getAs[AppSettings](ctx, db, schema.Settings, AppSettingsID)
	if err != nil {
		return AppSettings{}, err
	}
	if !ok {
		return DefaultAppSettings(), nil
	}
	return s, nil
}

// SaveSettings overwrites the application settings singleton.
func (db *DB) SaveSettings(ctx context.Context, s AppSettings) (AppSettings, error) {
	s.ID = AppSettingsID
	return putAs(ctx, db, schema.Settings, s)
}

// GetAISettings returns the AI assistant settings, or DefaultAISettings when
// none were saved.
func (db *DB) GetAISettings(ctx context.Context) (AISettings, error) {
	s, ok, err := getAs[AISettings](ctx, db, schema.Settings, AISettingsID)
	if err != nil {
		return AISettings{}, err
	}
	if !ok {
		return DefaultAISettings(), nil
	}
	return s, nil
}

// SaveAISettings overwrites the AI assistant settings singleton.
func (db *DB) SaveAISettings(ctx context.Context, s AISettings) (AISettings, error) {
	s.ID = AISettingsID
	return putAs(ctx, db, schema.Settings, s)
}
