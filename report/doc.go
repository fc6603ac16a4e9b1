// Package report renders mongolink CLI results for people and for scripts.
//
// NewFormatter returns a HumanFormatter (aligned tables and YAML) or a
// JSONFormatter (indented JSON). Secrets are masked unless asked for.
package report
