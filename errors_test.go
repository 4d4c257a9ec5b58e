package ulog

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMalformedInputError(t *testing.T) {
	t.Run("RegularErrorIsNotMalformed", func(t *testing.T) {
		assert.False(t, IsMalformedInputError(errors.New("err")))
	})
	t.Run("NilErrorIsNotMalformed", func(t *testing.T) {
		assert.False(t, IsMalformedInputError(nil))
		assert.NoError(t, MakeMalformedInputError(nil))
		assert.NoError(t, MakeFileError("foo.log", nil))
	})
	t.Run("NewMalformedInputError", func(t *testing.T) {
		assert.True(t, IsMalformedInputError(NewMalformedInputError("err")))
	})
	t.Run("NewMalformedInputErrorf", func(t *testing.T) {
		err := NewMalformedInputErrorf("err %s", "err")
		assert.True(t, IsMalformedInputError(err))
		assert.Equal(t, "err err", err.Error())
	})
	t.Run("MakeMalformedInputError", func(t *testing.T) {
		assert.True(t, IsMalformedInputError(MakeMalformedInputError(errors.New("err"))))
	})
	t.Run("WrappedErrorIsMalformed", func(t *testing.T) {
		err := errors.Wrap(NewMalformedInputError("err"), "context")
		assert.True(t, IsMalformedInputError(err))
	})
	t.Run("FileErrorKeepsPathAndCause", func(t *testing.T) {
		err := MakeFileError("job.log", NewMalformedInputError("bad"))
		assert.True(t, IsMalformedInputError(err))
		assert.Equal(t, "job.log: bad", err.Error())

		var fe *FileError
		assert.True(t, errors.As(err, &fe))
		assert.Equal(t, "job.log", fe.Path)
	})
	t.Run("FileErrorWithOtherCause", func(t *testing.T) {
		err := MakeFileError("job.log", errors.New("permission denied"))
		assert.False(t, IsMalformedInputError(err))
	})
}
