package job

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/farmout/ulog"
	"github.com/farmout/ulog/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodLog = `000 (7.000.000) 03/01 09:00:00 Job submitted from host: <10.0.0.1:9618>
...
001 (7.000.000) 03/01 09:10:00 Job executing on host: <10.0.0.2:9618>
...
005 (7.000.000) 03/01 10:10:00 Job terminated.
	(1) Normal termination (return value 0)
...
`

const badLog = `<c><a n="EventTypeNumber"><i>0</i></b></c>`

func newParser(t *testing.T) *parser.Parser {
	p, err := parser.New(parser.Options{Location: time.UTC})
	require.NoError(t, err)
	return p
}

func writeLog(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseFileJob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := newParser(t)

	t.Run("Success", func(t *testing.T) {
		j := NewParseFile(writeLog(t, dir, "good.log", goodLog))
		assert.True(t, strings.HasPrefix(j.ID(), "good.log-"))
		assert.False(t, j.Completed())

		j.Run(ctx, p)
		assert.True(t, j.Completed())
		require.NoError(t, j.Error())
		assert.Nil(t, j.FileError())
		require.NotNil(t, j.Log)
		assert.Len(t, j.Log.Events, 3)
		assert.False(t, j.Log.HasPendingJobs())
		assert.True(t, j.TimeInfo().Duration() >= 0)
		assert.False(t, j.TimeInfo().End.IsZero())
	})
	t.Run("Malformed", func(t *testing.T) {
		path := writeLog(t, dir, "bad.log", badLog)
		j := NewParseFile(path)
		j.Run(ctx, p)

		assert.True(t, j.Completed())
		assert.Nil(t, j.Log)
		ferr := j.FileError()
		require.NotNil(t, ferr)
		assert.Equal(t, path, ferr.Path)
		assert.True(t, ulog.IsMalformedInputError(ferr))
	})
	t.Run("MissingFile", func(t *testing.T) {
		path := filepath.Join(dir, "missing.log")
		j := NewParseFile(path)
		j.Run(ctx, p)

		require.Error(t, j.Error())
		ferr := j.FileError()
		require.NotNil(t, ferr)
		assert.Equal(t, path, ferr.Path)
		assert.False(t, ulog.IsMalformedInputError(ferr))
	})
	t.Run("Directory", func(t *testing.T) {
		j := NewParseFile(dir)
		j.Run(ctx, p)
		assert.Error(t, j.Error())
	})
	t.Run("NoParser", func(t *testing.T) {
		j := NewParseFile(filepath.Join(dir, "good.log"))
		j.Run(ctx, nil)
		assert.Error(t, j.Error())
	})
	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		j := NewParseFile(filepath.Join(dir, "good.log"))
		j.Run(cctx, p)
		assert.Error(t, j.Error())
		assert.Nil(t, j.Log)
	})
	t.Run("AddError", func(t *testing.T) {
		j := NewParseFile(filepath.Join(dir, "good.log"))
		j.AddError(nil)
		assert.NoError(t, j.Error())
		j.AddError(os.ErrClosed)
		j.AddError(os.ErrInvalid)
		ferr := j.FileError()
		require.NotNil(t, ferr)
		assert.Contains(t, ferr.Error(), "good.log")
	})
}

func TestTimeInfoDuration(t *testing.T) {
	start := time.Now()
	assert.Zero(t, TimeInfo{}.Duration())
	assert.Zero(t, TimeInfo{Start: start}.Duration())
	assert.Equal(t, time.Minute, TimeInfo{Start: start, End: start.Add(time.Minute)}.Duration())
}

func TestGetNumberIsMonotonic(t *testing.T) {
	last := GetNumber()
	for i := 0; i < 20; i++ {
		next := GetNumber()
		assert.True(t, next > last)
		last = next
	}
}
