package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// SettingsKey holds a mapping or a list of mappings of connection settings.
const SettingsKey = "MONGODB_SETTINGS"

// DefaultPrefix qualifies flat connection keys, e.g. MONGODB_HOST.
const DefaultPrefix = "MONGODB_"

// ErrInvalid is returned when configuration cannot be turned into descriptors.
var ErrInvalid = errors.New("invalid connection settings")

// Shape is the structural form of a raw configuration value.
// It is one of Passthrough, Single, Multi or Flat.
type Shape interface {
	shape()
}

// Passthrough carries a value that is not a mapping.
type Passthrough struct {
	Value any
}

// Single is a SettingsKey entry holding one mapping.
type Single struct {
	Settings map[string]any
}

// Multi is a SettingsKey entry holding a list of mappings.
type Multi struct {
	Items []map[string]any
}

// Flat is a mapping of prefix-qualified keys.
type Flat struct {
	Prefix   string
	Settings map[string]any
}

func (Passthrough) shape() {}
func (Single) shape()      {}
func (Multi) shape()       {}
func (Flat) shape()        {}

// Classify inspects raw once and reports its shape. Keys are matched
// case-insensitively so viper's lower-cased trees classify the same as
// hand-built maps.
func Classify(raw any, prefix string) (Shape, error) {
	if raw == nil {
		return Passthrough{}, nil
	}

	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return Passthrough{Value: raw}, nil //nolint:nilerr // non-mappings pass through
	}

	value, ok := lookup(m, SettingsKey)
	if !ok {
		return Flat{Prefix: prefix, Settings: m}, nil
	}

	switch v := value.(type) {
	case []any:
		items := make([]map[string]any, 0, len(v))
		for i, item := range v {
			im, err := cast.ToStringMapE(item)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d] is not a mapping", ErrInvalid, SettingsKey, i)
			}
			items = append(items, im)
		}
		return Multi{Items: items}, nil
	case []map[string]any:
		return Multi{Items: v}, nil
	}

	if sm, err := cast.ToStringMapE(value); err == nil {
		return Single{Settings: sm}, nil
	}

	return Passthrough{Value: value}, nil
}

// lookup finds key in m ignoring case.
func lookup(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
