package settings

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// DefaultAlias is the alias used when the configuration names none.
	DefaultAlias = "default-mongodb-connection"
	// DefaultHost is the host used when the configuration names none.
	DefaultHost = "localhost"
	// DefaultPort is the conventional MongoDB port.
	DefaultPort = 27017
	// DefaultName is the database name used when neither "db" nor "name" is set.
	DefaultName = "test"
)

var validate = validator.New()

// Descriptor is a resolved, normalized set of connection settings for one alias.
type Descriptor struct {
	Alias          string         `validate:"required"`
	Host           string         `validate:"required"`
	Port           int            `validate:"min=0,max=65535"`
	Name           string         `validate:"required"`
	Username       string
	Password       string
	ReadPreference readpref.Mode  `validate:"min=1,max=5"`
	ReplicaSet     string
	Options        map[string]any
}

// Validate checks the descriptor invariants.
func (d Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("validate descriptor %q: %w", d.Alias, err)
	}
	return nil
}

// Clone returns a copy that shares no mutable state with d.
func (d Descriptor) Clone() Descriptor {
	c := d
	if d.Options != nil {
		c.Options = maps.Clone(d.Options)
	}
	return c
}

// Redacted returns a copy with the password masked.
func (d Descriptor) Redacted() Descriptor {
	c := d.Clone()
	if c.Password != "" {
		c.Password = "****"
	}
	return c
}

// Map renders the descriptor as the keyword mapping a driver expects.
// Empty optional fields are left out.
func (d Descriptor) Map() map[string]any {
	m := make(map[string]any, len(d.Options)+8)
	for k, v := range d.Options {
		m[k] = v
	}
	m["alias"] = d.Alias
	m["host"] = d.Host
	m["port"] = d.Port
	m["name"] = d.Name
	m["read_preference"] = d.ReadPreference.String()
	if d.Username != "" {
		m["username"] = d.Username
	}
	if d.Password != "" {
		m["password"] = d.Password
	}
	if d.ReplicaSet != "" {
		m["replicaSet"] = d.ReplicaSet
	}
	return m
}

// Equivalent reports whether d and other would dial the same deployment as
// the same user. Alias and database name are ignored.
func (d Descriptor) Equivalent(other Descriptor) bool {
	if d.Host != other.Host || d.Port != other.Port {
		return false
	}
	if d.Username != other.Username || d.Password != other.Password {
		return false
	}
	if d.ReadPreference != other.ReadPreference || d.ReplicaSet != other.ReplicaSet {
		return false
	}
	if len(d.Options) == 0 && len(other.Options) == 0 {
		return true
	}
	return reflect.DeepEqual(d.Options, other.Options)
}
