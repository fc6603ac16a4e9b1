package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Connection is one entry of the connections file.
type Connection struct {
	Alias          string         `yaml:"alias"`
	Host           string         `yaml:"host"`
	Port           int            `yaml:"port,omitempty"`
	DB             string         `yaml:"db,omitempty"`
	Username       string         `yaml:"username,omitempty"`
	Password       string         `yaml:"password,omitempty"`
	ReadPreference string         `yaml:"read_preference,omitempty"`
	ReplicaSet     string         `yaml:"replicaset,omitempty"`
	Options        map[string]any `yaml:"options,omitempty"`
}

// Settings returns the entry in the mapping form accepted under
// MONGODB_SETTINGS. Options are flattened next to the named keys.
func (c Connection) Settings() map[string]any {
	m := maps.Clone(c.Options)
	if m == nil {
		m = make(map[string]any)
	}
	m["alias"] = c.Alias
	m["host"] = c.Host
	if c.Port != 0 {
		m["port"] = c.Port
	}
	if c.DB != "" {
		m["db"] = c.DB
	}
	if c.Username != "" {
		m["username"] = c.Username
	}
	if c.Password != "" {
		m["password"] = c.Password
	}
	if c.ReadPreference != "" {
		m["read_preference"] = c.ReadPreference
	}
	if c.ReplicaSet != "" {
		m["replicaset"] = c.ReplicaSet
	}
	return m
}

// ConnectionsFile holds named connections managed by `mongolink configure`.
type ConnectionsFile struct {
	Connections []Connection `yaml:"connections"`
}

// Get returns the connection with alias.
func (f *ConnectionsFile) Get(alias string) (*Connection, error) {
	for i := range f.Connections {
		if f.Connections[i].Alias == alias {
			return &f.Connections[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, alias)
}

// Add adds a new connection. Returns ErrConnectionExists if the alias is
// taken. Use Update to modify an existing connection.
func (f *ConnectionsFile) Add(c Connection) error {
	for i := range f.Connections {
		if f.Connections[i].Alias == c.Alias {
			return fmt.Errorf("%w: %s", ErrConnectionExists, c.Alias)
		}
	}
	f.Connections = append(f.Connections, c)
	return nil
}

// Update replaces an existing connection.
func (f *ConnectionsFile) Update(c Connection) error {
	for i := range f.Connections {
		if f.Connections[i].Alias == c.Alias {
			f.Connections[i] = c
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrConnectionNotFound, c.Alias)
}

// Remove removes a connection by alias.
func (f *ConnectionsFile) Remove(alias string) error {
	for i := range f.Connections {
		if f.Connections[i].Alias == alias {
			f.Connections = slices.Delete(f.Connections, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrConnectionNotFound, alias)
}

// Aliases returns the aliases in file order.
func (f *ConnectionsFile) Aliases() []string {
	aliases := make([]string, len(f.Connections))
	for i := range f.Connections {
		aliases[i] = f.Connections[i].Alias
	}
	return aliases
}

// Settings returns every connection in MONGODB_SETTINGS list form.
func (f *ConnectionsFile) Settings() []any {
	out := make([]any, len(f.Connections))
	for i := range f.Connections {
		out[i] = f.Connections[i].Settings()
	}
	return out
}

// Save writes the file to path, creating the parent directory if needed.
// The file may hold passwords and is written owner-only.
func (f *ConnectionsFile) Save(path string) error {
	cleanPath := filepath.Clean(path)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal connections: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write connections file: %w", err)
	}

	return nil
}

// LoadConnectionsFile loads the connections file at path.
func LoadConnectionsFile(path string) (*ConnectionsFile, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read connections file: %w", err)
	}

	var f ConnectionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse connections file: %w", err)
	}

	return &f, nil
}

// DefaultConnectionsPath returns ~/.mongolink/connections.yaml.
func DefaultConnectionsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mongolink", "connections.yaml")
}
