package report_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/mongolink/config"
	"github.com/sagarc03/mongolink/report"
	"github.com/sagarc03/mongolink/settings"
)

func TestNewFormatter(t *testing.T) {
	t.Run("json formatter", func(t *testing.T) {
		_, ok := report.NewFormatter(true, false).(*report.JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("human formatter quiet", func(t *testing.T) {
		hf, ok := report.NewFormatter(false, true).(*report.HumanFormatter)
		require.True(t, ok)
		assert.True(t, hf.Quiet)
	})
}

func checkResults() []report.CheckResult {
	return []report.CheckResult{
		{Alias: "main", Host: "localhost", DB: "app", Latency: 3 * time.Millisecond},
		{Alias: "reports", Host: "localhost", DB: "reports", Shared: true, Latency: time.Millisecond},
		{Alias: "archive", Host: "cold.internal", DB: "old", Err: errors.New("connection refused")},
	}
}

func TestHumanFormatter_FormatCheck(t *testing.T) {
	t.Run("mixed", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.HumanFormatter{}).FormatCheck(&buf, checkResults()))

		out := buf.String()
		assert.Contains(t, out, "ALIAS")
		assert.Contains(t, out, "localhost/app")
		assert.Contains(t, out, "localhost/reports (shared)")
		assert.Contains(t, out, "FAIL")
		assert.Contains(t, out, "connection refused")
		assert.Contains(t, out, "3 connection(s), 1 failed")
	})

	t.Run("quiet hides successes", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.HumanFormatter{Quiet: true}).FormatCheck(&buf, checkResults()))

		out := buf.String()
		assert.NotContains(t, out, "localhost/app")
		assert.Contains(t, out, "archive")
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.HumanFormatter{}).FormatCheck(&buf, nil))
		assert.Contains(t, buf.String(), "No connections defined")
	})
}

func TestJSONFormatter_FormatCheck(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&report.JSONFormatter{}).FormatCheck(&buf, checkResults()))

	var got struct {
		Results []struct {
			Alias     string `json:"alias"`
			OK        bool   `json:"ok"`
			Shared    bool   `json:"shared"`
			LatencyMS int64  `json:"latency_ms"`
			Error     string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Results, 3)

	assert.True(t, got.Results[0].OK)
	assert.Equal(t, int64(3), got.Results[0].LatencyMS)
	assert.True(t, got.Results[1].Shared)
	assert.False(t, got.Results[2].OK)
	assert.Equal(t, "connection refused", got.Results[2].Error)
}

func descriptors() []settings.Descriptor {
	return []settings.Descriptor{{
		Alias:          "main",
		Host:           "db.internal",
		Port:           27017,
		Name:           "app",
		Username:       "svc",
		Password:       "hunter2",
		ReadPreference: readpref.SecondaryMode,
		ReplicaSet:     "rs0",
	}}
}

func TestHumanFormatter_FormatDescriptors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&report.HumanFormatter{}).FormatDescriptors(&buf, descriptors()))

	assert.NotContains(t, buf.String(), "hunter2")

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "main", got[0]["alias"])
	assert.Equal(t, "secondary", got[0]["read_preference"])
	assert.Equal(t, "rs0", got[0]["replicaSet"])
	assert.Equal(t, "****", got[0]["password"])
}

func TestJSONFormatter_FormatDescriptors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&report.JSONFormatter{}).FormatDescriptors(&buf, descriptors()))

	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), `"alias": "main"`)
}

func TestFormatTempDB(t *testing.T) {
	info := report.TempDBInfo{ID: "abc", Launcher: "process", URI: "mongodb://localhost:27111", Port: 27111, DataDir: "/tmp/x", Preserve: true}

	t.Run("human", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.HumanFormatter{}).FormatTempDB(&buf, info))
		assert.Contains(t, buf.String(), "mongodb://localhost:27111")
		assert.Contains(t, buf.String(), "preserved")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.JSONFormatter{}).FormatTempDB(&buf, info))
		assert.JSONEq(t, `{"id":"abc","launcher":"process","uri":"mongodb://localhost:27111","port":27111,"data_dir":"/tmp/x","preserve":true}`, buf.String())
	})
}

func TestFormatConnections(t *testing.T) {
	conns := []config.Connection{
		{Alias: "main", Host: "localhost", Port: 27017, DB: "app", Username: "svc", Password: "a-long-password"},
		{Alias: "uri", Host: "mongodb://a,b/?replicaSet=rs0", Port: 27017},
	}

	t.Run("human masks secrets", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.HumanFormatter{}).FormatConnections(&buf, conns, false))

		out := buf.String()
		assert.Contains(t, out, "localhost:27017")
		assert.Contains(t, out, "mongodb://a,b/?replicaSet=rs0")
		assert.Contains(t, out, "svc:a-...rd")
		assert.NotContains(t, out, "a-long-password")
	})

	t.Run("human shows secrets", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.HumanFormatter{}).FormatConnections(&buf, conns, true))
		assert.Contains(t, buf.String(), "svc:a-long-password")
	})

	t.Run("human empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.HumanFormatter{}).FormatConnections(&buf, nil, false))
		assert.Contains(t, buf.String(), "No connections configured.")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&report.JSONFormatter{}).FormatConnections(&buf, conns, false))

		var got struct {
			Connections []struct {
				Alias    string `json:"alias"`
				Password string `json:"password"`
			} `json:"connections"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got.Connections, 2)
		assert.Equal(t, "a-...rd", got.Connections[0].Password)
		assert.Empty(t, got.Connections[1].Password)
	})
}

func TestFormatError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&report.HumanFormatter{}).FormatError(&buf, errors.New("boom")))
	assert.Equal(t, "Error: boom\n", buf.String())

	buf.Reset()
	require.NoError(t, (&report.JSONFormatter{}).FormatError(&buf, errors.New("boom")))
	assert.JSONEq(t, `{"error":"boom"}`, buf.String())
}
