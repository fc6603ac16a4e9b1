package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sagarc03/mongolink/config"
	"github.com/sagarc03/mongolink/settings"
)

// CheckResult is the outcome of connecting to and pinging one alias.
type CheckResult struct {
	Alias   string
	Host    string
	DB      string
	Shared  bool
	Latency time.Duration
	Err     error
}

// TempDBInfo describes a running temporary instance.
type TempDBInfo struct {
	ID       string `json:"id"`
	Launcher string `json:"launcher"`
	URI      string `json:"uri"`
	Port     int    `json:"port"`
	DataDir  string `json:"data_dir"`
	Preserve bool   `json:"preserve"`
}

// Formatter formats results for output.
type Formatter interface {
	FormatCheck(w io.Writer, results []CheckResult) error
	FormatDescriptors(w io.Writer, descs []settings.Descriptor) error
	FormatTempDB(w io.Writer, info TempDBInfo) error
	FormatConnections(w io.Writer, conns []config.Connection, showSecrets bool) error
	FormatError(w io.Writer, err error) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatCheck formats check results as an aligned table.
func (f *HumanFormatter) FormatCheck(w io.Writer, results []CheckResult) error {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "No connections defined")
		return nil
	}

	maxAliasLen := 5 // "ALIAS"
	for i := range results {
		maxAliasLen = max(maxAliasLen, len(results[i].Alias))
	}
	maxAliasLen = min(maxAliasLen, 40)

	_, _ = fmt.Fprintf(w, "%-*s  %-6s  %8s  %s\n", maxAliasLen, "ALIAS", "STATUS", "LATENCY", "DETAIL")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", maxAliasLen), strings.Repeat("-", 6), strings.Repeat("-", 8), strings.Repeat("-", 20))

	failed := 0
	for i := range results {
		r := &results[i]
		alias := truncate(r.Alias, maxAliasLen)
		if r.Err != nil {
			failed++
			_, _ = fmt.Fprintf(w, "%-*s  %-6s  %8s  %v\n", maxAliasLen, alias, "FAIL", "-", r.Err)
			continue
		}
		if f.Quiet {
			continue
		}
		detail := r.Host + "/" + r.DB
		if r.Shared {
			detail += " (shared)"
		}
		_, _ = fmt.Fprintf(w, "%-*s  %-6s  %8s  %s\n", maxAliasLen, alias, "OK", r.Latency.Round(time.Millisecond), detail)
	}

	_, _ = fmt.Fprintf(w, "\n%d connection(s), %d failed\n", len(results), failed)
	return nil
}

// FormatDescriptors formats descriptors as YAML with passwords redacted.
func (f *HumanFormatter) FormatDescriptors(w io.Writer, descs []settings.Descriptor) error {
	out := make([]map[string]any, len(descs))
	for i := range descs {
		out[i] = descs[i].Redacted().Map()
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// FormatTempDB formats instance details as text.
func (f *HumanFormatter) FormatTempDB(w io.Writer, info TempDBInfo) error {
	_, _ = fmt.Fprintf(w, "ID:       %s\n", info.ID)
	_, _ = fmt.Fprintf(w, "Launcher: %s\n", info.Launcher)
	_, _ = fmt.Fprintf(w, "URI:      %s\n", info.URI)
	_, _ = fmt.Fprintf(w, "Port:     %d\n", info.Port)
	_, _ = fmt.Fprintf(w, "Data dir: %s\n", info.DataDir)
	if info.Preserve {
		_, _ = fmt.Fprintln(w, "Data is preserved on exit.")
	}
	return nil
}

// FormatConnections formats saved connections as a table.
func (f *HumanFormatter) FormatConnections(w io.Writer, conns []config.Connection, showSecrets bool) error {
	if len(conns) == 0 {
		_, _ = fmt.Fprintln(w, "No connections configured.")
		return nil
	}

	maxAliasLen := 5 // "ALIAS"
	maxHostLen := 4  // "HOST"
	for i := range conns {
		maxAliasLen = max(maxAliasLen, len(conns[i].Alias))
		maxHostLen = max(maxHostLen, len(hostPort(conns[i])))
	}
	maxAliasLen = min(maxAliasLen, 30)
	maxHostLen = min(maxHostLen, 50)

	_, _ = fmt.Fprintf(w, "%-*s  %-*s  %-12s  %s\n", maxAliasLen, "ALIAS", maxHostLen, "HOST", "DB", "USER")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", maxAliasLen), strings.Repeat("-", maxHostLen), strings.Repeat("-", 12), strings.Repeat("-", 20))

	for i := range conns {
		c := &conns[i]
		user := c.Username
		if user != "" && c.Password != "" {
			user += ":" + maskSecret(c.Password, showSecrets)
		}
		_, _ = fmt.Fprintf(w, "%-*s  %-*s  %-12s  %s\n",
			maxAliasLen, truncate(c.Alias, maxAliasLen),
			maxHostLen, truncate(hostPort(*c), maxHostLen),
			c.DB, user)
	}

	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatCheck formats check results as JSON.
func (f *JSONFormatter) FormatCheck(w io.Writer, results []CheckResult) error {
	type jsonResult struct {
		Alias     string `json:"alias"`
		Host      string `json:"host"`
		DB        string `json:"db"`
		OK        bool   `json:"ok"`
		Shared    bool   `json:"shared,omitempty"`
		LatencyMS int64  `json:"latency_ms,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i := range results {
		r := &results[i]
		jr := jsonResult{Alias: r.Alias, Host: r.Host, DB: r.DB, OK: r.Err == nil, Shared: r.Shared}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.LatencyMS = r.Latency.Milliseconds()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatDescriptors formats descriptors as JSON with passwords redacted.
func (f *JSONFormatter) FormatDescriptors(w io.Writer, descs []settings.Descriptor) error {
	out := make([]map[string]any, len(descs))
	for i := range descs {
		out[i] = descs[i].Redacted().Map()
	}
	return writeJSON(w, out)
}

// FormatTempDB formats instance details as JSON.
func (f *JSONFormatter) FormatTempDB(w io.Writer, info TempDBInfo) error {
	return writeJSON(w, info)
}

// FormatConnections formats saved connections as JSON.
func (f *JSONFormatter) FormatConnections(w io.Writer, conns []config.Connection, showSecrets bool) error {
	type jsonConnection struct {
		Alias    string `json:"alias"`
		Host     string `json:"host"`
		Port     int    `json:"port,omitempty"`
		DB       string `json:"db,omitempty"`
		Username string `json:"username,omitempty"`
		Password string `json:"password,omitempty"`
	}

	output := struct {
		Connections []jsonConnection `json:"connections"`
	}{
		Connections: make([]jsonConnection, len(conns)),
	}

	for i := range conns {
		c := &conns[i]
		jc := jsonConnection{Alias: c.Alias, Host: c.Host, Port: c.Port, DB: c.DB, Username: c.Username}
		if c.Password != "" {
			jc.Password = maskSecret(c.Password, showSecrets)
		}
		output.Connections[i] = jc
	}

	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func hostPort(c config.Connection) string {
	if c.Port == 0 || strings.Contains(c.Host, "://") {
		return c.Host
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// maskSecret masks a secret string, showing only first 2 and last 2 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:2] + "..." + secret[len(secret)-2:]
}
