package ulog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormats(t *testing.T) {
	log := &EventLog{
		SourceName: "job.log",
		Events: []*EventRecord{
			{Kind: Submit, JobID: "1.0", Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
			{Kind: Terminated, JobID: "1.0", ExitCode: intPtr(0), RawText: "005 (001.000.000)"},
		},
	}

	for _, f := range []Format{BSON, JSON, YAML} {
		t.Run(f.String(), func(t *testing.T) {
			parsed, err := ParseFormat(f.String())
			require.NoError(t, err)
			assert.Equal(t, f, parsed)

			data, err := ConvertTo(f, log)
			require.NoError(t, err)
			assert.NotEmpty(t, data)

			out := &EventLog{}
			require.NoError(t, ConvertFrom(f, data, out))
			assert.Equal(t, log.SourceName, out.SourceName)
			require.Len(t, out.Events, 2)
			assert.Equal(t, Terminated, out.Events[1].Kind)
			require.NotNil(t, out.Events[1].ExitCode)
			assert.Equal(t, 0, *out.Events[1].ExitCode)
			assert.Nil(t, out.Events[1].ExitSignal)
		})
	}

	t.Run("UnknownFormat", func(t *testing.T) {
		_, err := ParseFormat("xml")
		assert.Error(t, err)

		_, err = ConvertTo(Format(42), log)
		assert.Error(t, err)
		assert.Error(t, ConvertFrom(Format(42), []byte("{}"), log))
	})
	t.Run("FormatAliases", func(t *testing.T) {
		f, err := ParseFormat(" YML ")
		require.NoError(t, err)
		assert.Equal(t, YAML, f)
	})
}
