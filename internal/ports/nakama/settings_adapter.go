package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"scaffold/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	settingsCollection = "settings"
	settingsKey        = "preferences"
)

// StorageReadWriter is the subset of runtime.NakamaModule the settings adapter needs.
type StorageReadWriter interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
}

// NakamaSettingsAdapter implements ports.SettingsPort on Nakama storage.
// Settings are stored as JSON owned by the user, readable only by the owner.
type NakamaSettingsAdapter struct {
	store StorageReadWriter
}

// NewNakamaSettingsAdapter creates a new settings adapter.
func NewNakamaSettingsAdapter(store StorageReadWriter) *NakamaSettingsAdapter {
	return &NakamaSettingsAdapter{store: store}
}

// Load returns the stored settings, or the defaults if the user has none.
func (a *NakamaSettingsAdapter) Load(ctx context.Context, userID string) (ports.Settings, error) {
	if userID == "" {
		return ports.Settings{}, fmt.Errorf("userID is required")
	}
	objects, err := a.store.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: settingsCollection,
		Key:        settingsKey,
		UserID:     userID,
	}})
	if err != nil {
		return ports.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(objects) == 0 {
		return ports.DefaultSettings(), nil
	}

	settings := ports.DefaultSettings()
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &settings); err != nil {
		return ports.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// Save overwrites the user's settings.
func (a *NakamaSettingsAdapter) Save(ctx context.Context, userID string, settings ports.Settings) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	return a.write(ctx, userID, settings, "")
}

// SeedDefaults writes the default settings only if none exist yet.
func (a *NakamaSettingsAdapter) SeedDefaults(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("userID is required")
	}
	err := a.write(ctx, userID, ports.DefaultSettings(), "*")
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *NakamaSettingsAdapter) write(ctx context.Context, userID string, settings ports.Settings, version string) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = a.store.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      settingsCollection,
		Key:             settingsKey,
		UserID:          userID,
		Value:           string(value),
		Version:         version,
		PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

var _ ports.SettingsPort = (*NakamaSettingsAdapter)(nil)
