package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mongodb/grip/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
workers: 3
timezone: America/Chicago
log_level: debug
parser:
  xml_attribute_fields: true
report:
  top_machines: 10
  sample_size: 2
  exit_codes: false
archive:
  uri: mongodb://db.example.org:27017
  collection: farmout
  connect_timeout: 2s
`

func TestDefaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, runtime.NumCPU(), conf.Workers)
	assert.Equal(t, level.Info, conf.Level())
	assert.Equal(t, time.Local.String(), conf.Location().String())
	assert.False(t, conf.ArchiveEnabled())

	report := conf.ReportOptions()
	assert.Equal(t, 5, report.TopMachines)
	assert.Equal(t, 3, report.SampleSize)
	assert.True(t, report.ExitCodes)
	assert.Equal(t, 3, conf.StatsOptions().SampleSize)
	assert.False(t, conf.ParserOptions().XMLAttributeFields)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ulog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0644))

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, conf.Workers)
	assert.Equal(t, level.Debug, conf.Level())
	assert.Equal(t, "America/Chicago", conf.Location().String())

	popts := conf.ParserOptions()
	assert.True(t, popts.XMLAttributeFields)
	assert.Equal(t, "America/Chicago", popts.Location.String())

	ropts := conf.ReportOptions()
	assert.Equal(t, 10, ropts.TopMachines)
	assert.Equal(t, 2, ropts.SampleSize)
	assert.False(t, ropts.ExitCodes)

	require.True(t, conf.ArchiveEnabled())
	aopts := conf.ArchiveOptions()
	assert.Equal(t, "mongodb://db.example.org:27017", aopts.URI)
	assert.Equal(t, "ulog", aopts.DB)
	assert.Equal(t, "farmout", aopts.Collection)
	assert.Equal(t, 2*time.Second, aopts.ConnectTimeout)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	conf, err := Parse([]byte("workers: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, conf.Workers)
	assert.Equal(t, "info", conf.LogLevel)
	assert.True(t, conf.Report.ExitCodes)
	assert.Equal(t, 5, conf.Report.TopMachines)
}

func TestInvalidConfigurations(t *testing.T) {
	for name, doc := range map[string]string{
		"BadYAML":        "workers: [",
		"BadTimezone":    "timezone: Mars/Olympus",
		"BadLevel":       "log_level: loud",
		"NegativeReport": "report:\n  top_machines: -1\n",
		"BadTimeout":     "archive:\n  uri: mongodb://localhost\n  connect_timeout: soon\n",
	} {
		t.Run(name, func(t *testing.T) {
			conf, err := Parse([]byte(doc))
			assert.Error(t, err)
			assert.Nil(t, conf)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, conf)
}
