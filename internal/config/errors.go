package config

import (
	"errors"
	"fmt"
)

// ErrInvalidSetting matches every SettingError
var ErrInvalidSetting = errors.New("invalid setting")

// SettingError reports an environment setting whose value cannot be used.
// Err holds the parse failure behind it, if any.
type SettingError struct {
	Setting string
	Value   string
	Reason  string
	Err     error
}

func invalidSetting(setting, value, reason string) *SettingError {
	return &SettingError{Setting: setting, Value: value, Reason: reason}
}

func unparsableSetting(setting, value, reason string, err error) *SettingError {
	return &SettingError{Setting: setting, Value: value, Reason: reason, Err: err}
}

func (e *SettingError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is empty: %s", e.Setting, e.Reason)
	}
	return fmt.Sprintf("%s=%q: %s", e.Setting, e.Value, e.Reason)
}

func (e *SettingError) Unwrap() error { return e.Err }

func (e *SettingError) Is(target error) bool { return target == ErrInvalidSetting }
