package model

import (
	"encoding/json"
	"fmt"
)

type enabledMode string

const (
	enabledAll    enabledMode = "all"
	enabledNone   enabledMode = "none"
	enabledPerKey enabledMode = "per_key"
)

// Enabled is a tagged enablement variant: everything on, everything off, or a
// per-key map. All checks go through the single On lookup.
type Enabled struct {
	Mode enabledMode     `json:"mode"`
	Keys map[string]bool `json:"keys,omitempty"`
}

func AllOn() Enabled  { return Enabled{Mode: enabledAll} }
func AllOff() Enabled { return Enabled{Mode: enabledNone} }

func PerKey(keys map[string]bool) Enabled {
	return Enabled{Mode: enabledPerKey, Keys: keys}
}

// On reports whether the given key is enabled. In per-key mode an unknown key
// is off.
func (e Enabled) On(key string) bool {
	switch e.Mode {
	case enabledAll:
		return true
	case enabledNone:
		return false
	case enabledPerKey:
		return e.Keys[key]
	default:
		return false
	}
}

// ParseEnabled decodes the JSON representation stored in drip_settings.
func ParseEnabled(raw []byte) (Enabled, error) {
	var e Enabled
	if err := json.Unmarshal(raw, &e); err != nil {
		return Enabled{}, err
	}
	switch e.Mode {
	case enabledAll, enabledNone, enabledPerKey:
		return e, nil
	default:
		return Enabled{}, fmt.Errorf("enabled: unknown mode %q", e.Mode)
	}
}
