package prefs

import (
	"context"
	"fmt"
)

// SaveAPIKey stores key, or removes the stored key when key is empty.
// Removing it records KeyAPIKeyCleared; storing one drops that marker.
func SaveAPIKey(ctx context.Context, s Store, key string) error {
	if key == "" {
		if err := s.Set(ctx, KeyAPIKeyCleared, "1"); err != nil {
			return fmt.Errorf("failed to mark api key cleared: %w", err)
		}
		return s.Delete(ctx, KeyAPIKey)
	}

	if err := s.Set(ctx, KeyAPIKey, key); err != nil {
		return err
	}
	if err := s.Delete(ctx, KeyAPIKeyCleared); err != nil {
		return fmt.Errorf("failed to drop api key cleared marker: %w", err)
	}
	return nil
}

// APIKeyCleared reports whether the key was explicitly cleared
func APIKeyCleared(ctx context.Context, s Store) (bool, error) {
	v, err := GetString(ctx, s, KeyAPIKeyCleared)
	return v != "", err
}
