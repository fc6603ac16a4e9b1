package mongolink

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Application configuration keys read by the manager.
const (
	KeyTesting        = "TESTING"
	KeyTempDB         = "TEMP_DB"
	KeyPreserveTempDB = "PRESERVE_TEMP_DB"
	KeyTempDBLocation = "TEMP_DB_LOC"
	KeyTempDBLauncher = "TEMP_DB_LAUNCHER"
)

// Policy holds the test-mode flags taken from application configuration.
type Policy struct {
	Testing        bool
	TempDB         bool
	PreserveTempDB bool
	TempDBLocation string
	Launcher       string
}

// PolicyFromConfig reads the policy flags from app. Missing flags are false;
// flags that are present must be real booleans.
func PolicyFromConfig(app map[string]any) (Policy, error) {
	var p Policy
	var bad []string

	for key, dst := range map[string]*bool{
		KeyTesting:        &p.Testing,
		KeyTempDB:         &p.TempDB,
		KeyPreserveTempDB: &p.PreserveTempDB,
	} {
		v, ok := lookup(app, key)
		if !ok || v == nil {
			continue
		}
		b, isBool := v.(bool)
		if !isBool {
			bad = append(bad, key)
			continue
		}
		*dst = b
	}

	if len(bad) > 0 {
		return Policy{}, fmt.Errorf("%w: `TESTING`, `TEMP_DB`, and `PRESERVE_TEMP_DB` must be boolean values", ErrInvalidSettings)
	}

	if v, ok := lookup(app, KeyTempDBLocation); ok {
		p.TempDBLocation = cast.ToString(v)
	}
	if v, ok := lookup(app, KeyTempDBLauncher); ok {
		p.Launcher = strings.ToLower(cast.ToString(v))
	}

	return p, nil
}

// Validate checks the flags against each other and against host.
func (p Policy) Validate(host string) error {
	if !p.Testing && isMockHost(host) {
		return fmt.Errorf("%w: mongomock connections are only allowed when TESTING is true", ErrInvalidURI)
	}
	if !p.Testing && (p.TempDB || p.PreserveTempDB) {
		return fmt.Errorf("%w: `TEMP_DB` and `PRESERVE_TEMP_DB` can be used only when `TESTING` is true", ErrInvalidSettings)
	}
	return nil
}

func isMockHost(host string) bool {
	return strings.HasPrefix(host, MockScheme)
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
