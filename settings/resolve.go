package settings

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type options struct {
	prefix       string
	prefixSet    bool
	keepPassword bool
}

// Option configures Resolve and Fetch.
type Option func(*options)

// WithPrefix only considers keys starting with prefix, and strips it.
// For Fetch it replaces DefaultPrefix on flat configuration.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
		o.prefixSet = true
	}
}

// KeepPassword preserves the password in resolved descriptors.
func KeepPassword() Option {
	return func(o *options) {
		o.keepPassword = true
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Result is the outcome of Fetch.
type Result struct {
	Shape       Shape
	Descriptors []Descriptor
}

// Multi reports whether the configuration declared a list of connections.
func (r Result) Multi() bool {
	_, ok := r.Shape.(Multi)
	return ok
}

// Passthrough returns the untouched value when the input was not a mapping.
func (r Result) Passthrough() (any, bool) {
	p, ok := r.Shape.(Passthrough)
	return p.Value, ok
}

// Fetch classifies raw and resolves every connection it declares.
// SettingsKey entries are resolved without prefix filtering; flat
// configuration is filtered by DefaultPrefix unless WithPrefix is given.
func Fetch(raw any, opts ...Option) (Result, error) {
	o := newOptions(opts)
	prefix := DefaultPrefix
	if o.prefixSet {
		prefix = o.prefix
	}

	shape, err := Classify(raw, prefix)
	if err != nil {
		return Result{}, err
	}

	res := Result{Shape: shape}
	noPrefix := append(opts[:len(opts):len(opts)], WithPrefix(""))

	switch s := shape.(type) {
	case Passthrough:
		return res, nil
	case Single:
		d, err := Resolve(s.Settings, noPrefix...)
		if err != nil {
			return Result{}, err
		}
		res.Descriptors = []Descriptor{d}
	case Multi:
		for i, item := range s.Items {
			d, err := Resolve(item, noPrefix...)
			if err != nil {
				return Result{}, fmt.Errorf("resolve %s[%d]: %w", SettingsKey, i, err)
			}
			res.Descriptors = append(res.Descriptors, d)
		}
	case Flat:
		d, err := Resolve(s.Settings, WithPrefix(s.Prefix), keepPasswordIf(o.keepPassword))
		if err != nil {
			return Result{}, err
		}
		res.Descriptors = []Descriptor{d}
	}

	return res, nil
}

func keepPasswordIf(keep bool) Option {
	return func(o *options) {
		o.keepPassword = keep
	}
}

// Resolve normalizes one mapping of connection settings into a Descriptor.
// With a prefix only matching keys are used; zero matches yields a
// descriptor made entirely of defaults.
func Resolve(raw map[string]any, opts ...Option) (Descriptor, error) {
	o := newOptions(opts)
	keys := extract(raw, o.prefix)

	d := Descriptor{
		Alias:          DefaultAlias,
		Host:           DefaultHost,
		Port:           DefaultPort,
		Name:           DefaultName,
		ReadPreference: readpref.PrimaryMode,
	}

	var dbName, name string
	for k, v := range keys {
		var err error
		switch k {
		case "db":
			dbName, err = cast.ToStringE(v)
		case "name":
			name, err = cast.ToStringE(v)
		case "alias":
			err = setString(&d.Alias, v)
		case "host":
			err = setString(&d.Host, v)
		case "port":
			if v != nil {
				d.Port, err = cast.ToIntE(v)
			}
		case "username":
			d.Username, err = cast.ToStringE(v)
		case "password":
			d.Password, err = cast.ToStringE(v)
		case "read_preference":
			if v != nil {
				d.ReadPreference, err = parseReadPreference(v)
			}
		case "replicaset":
			d.ReplicaSet, err = cast.ToStringE(v)
		default:
			if d.Options == nil {
				d.Options = make(map[string]any)
			}
			d.Options[k] = v
		}
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: key %q: %w", ErrInvalid, k, err)
		}
	}

	switch {
	case dbName != "":
		d.Name = dbName
	case name != "":
		d.Name = name
	}

	if !o.keepPassword {
		d.Password = ""
	}

	if err := d.Validate(); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return d, nil
}

// extract lower-cases keys and, when prefix is set, keeps only the keys
// carrying it (case-insensitive) with the prefix removed.
func extract(raw map[string]any, prefix string) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if prefix == "" {
			out[strings.ToLower(k)] = v
			continue
		}
		if len(k) > len(prefix) && strings.EqualFold(k[:len(prefix)], prefix) {
			out[strings.ToLower(k[len(prefix):])] = v
		}
	}
	return out
}

func setString(dst *string, v any) error {
	s, err := cast.ToStringE(v)
	if err != nil {
		return err
	}
	if s != "" {
		*dst = s
	}
	return nil
}

func parseReadPreference(v any) (readpref.Mode, error) {
	switch rp := v.(type) {
	case readpref.Mode:
		return rp, nil
	case *readpref.ReadPref:
		return rp.Mode(), nil
	case string:
		return readpref.ModeFromString(rp)
	}

	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, err
	}
	mode := readpref.Mode(n)
	if !mode.IsValid() {
		return 0, fmt.Errorf("unknown read preference mode %d", n)
	}
	return mode, nil
}
