package job

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type JobGroupSuite struct {
	group *Group
	dir   string
	suite.Suite
}

func TestJobGroupSuite(t *testing.T) {
	suite.Run(t, new(JobGroupSuite))
}

func (s *JobGroupSuite) SetupTest() {
	s.group = NewGroup("batch")
	s.dir = s.T().TempDir()
}

func (s *JobGroupSuite) write(name, content string) string {
	return writeLog(s.T(), s.dir, name, content)
}

func (s *JobGroupSuite) TestAddRequiresUniquePaths() {
	path := s.write("a.log", goodLog)

	s.NoError(s.group.Add(NewParseFile(path)))
	s.Error(s.group.Add(NewParseFile(path)))
	s.Error(s.group.Add(nil))
	s.Equal(1, s.group.Len())

	_, ok := s.group.Get(path)
	s.True(ok)
}

func (s *JobGroupSuite) TestAddPathsWalksDirectories() {
	s.write("b.log", goodLog)
	s.write("nested/a.log", goodLog)
	s.write("notes.txt", "not a log")
	single := s.write("other/c.txt", goodLog)

	s.NoError(s.group.AddPaths(s.dir, single))

	var names []string
	for _, j := range s.group.Jobs() {
		rel, err := filepath.Rel(s.dir, j.Path)
		s.Require().NoError(err)
		names = append(names, filepath.ToSlash(rel))
	}
	s.Equal([]string{"b.log", "nested/a.log", "other/c.txt"}, names)
}

func (s *JobGroupSuite) TestAddPathsReportsMissingPathsAndContinues() {
	good := s.write("good.log", goodLog)

	err := s.group.AddPaths(filepath.Join(s.dir, "missing"), good, good)
	s.Error(err)
	s.Contains(err.Error(), "missing")
	s.Equal(1, s.group.Len())
}

func (s *JobGroupSuite) TestResultsAfterRunning() {
	s.NoError(s.group.AddPaths(s.write("good.log", goodLog), s.write("bad.log", badLog)))
	s.False(s.group.Completed())

	p := newParser(s.T())
	for _, j := range s.group.Jobs() {
		j.Run(context.Background(), p)
	}

	s.True(s.group.Completed())
	s.Len(s.group.Logs(), 1)
	failures := s.group.Failures()
	s.Require().Len(failures, 1)
	s.True(strings.HasSuffix(failures[0].Path, "bad.log"))
}

func (s *JobGroupSuite) TestIDsAreUnique() {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := NewGroup("foo").ID()
		s.True(strings.HasPrefix(id, "foo-"))
		s.False(seen[id])
		seen[id] = true
	}
}
