package exitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	for code, expected := range map[string]string{
		"0":         "SUCCESS",
		" 0 ":       "SUCCESS",
		"-1":        "Error return without specification",
		"84":        "Input file is not a ROOT file",
		"8020":      "FileOpenError (Likely a site error)",
		"0001":      "Plug-in or message service initialization Exception",
		"00":        "SUCCESS",
		"0084":      "Input file is not a ROOT file",
		NoLogFile:   "Job has not completed",
		"signal 11": "Killed by signal 11",
		"424242":    Unknown,
		"":          Unknown,
	} {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, expected, Describe(code))
		})
	}
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("70500"))
	assert.False(t, Known("13"))
}
