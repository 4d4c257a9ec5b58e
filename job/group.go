package job

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/farmout/ulog"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// LogExtension is the file name suffix of user logs found when walking
// a directory.
const LogExtension = ".log"

// Group is the collection of ParseFile jobs for one batch. Jobs are
// unique by path and kept in the order in which they were added.
type Group struct {
	counter int
	Name    string
	jobs    map[string]*ParseFile
	order   []string
	l       sync.RWMutex
}

// NewGroup creates a new, empty Group object.
func NewGroup(name string) *Group {
	return &Group{
		counter: GetNumber(),
		Name:    name,
		jobs:    make(map[string]*ParseFile),
	}
}

// ID returns an identifier for the group, based on the name passed to
// the constructor and an internal counter.
func (g *Group) ID() string {
	return fmt.Sprintf("%s-%d", g.Name, g.counter)
}

// Add appends a job to the group. Returns an error if a job for the
// same path already exists in the group.
func (g *Group) Add(j *ParseFile) error {
	if j == nil {
		return errors.New("cannot add nil job")
	}

	g.l.Lock()
	defer g.l.Unlock()

	if _, exists := g.jobs[j.Path]; exists {
		return errors.Errorf("job for '%s' already exists in group %s", j.Path, g.Name)
	}

	g.jobs[j.Path] = j
	g.order = append(g.order, j.Path)
	return nil
}

// AddPaths adds a job for each path. Directories are walked and every
// file ending in LogExtension beneath them is added, in lexical order.
// Paths that cannot be read, and duplicates, are reported in the
// returned error; the remaining paths are still added.
func (g *Group) AddPaths(paths ...string) error {
	catcher := grip.NewBasicCatcher()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			catcher.Add(ulog.MakeFileError(path, err))
			continue
		}

		if !info.IsDir() {
			catcher.Add(g.Add(NewParseFile(path)))
			continue
		}

		found, err := findLogs(path)
		catcher.Add(err)
		for _, fn := range found {
			catcher.Add(g.Add(NewParseFile(fn)))
		}
	}

	return catcher.Resolve()
}

func findLogs(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return ulog.MakeFileError(path, err)
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), LogExtension) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)

	return out, errors.Wrapf(err, "problem finding logs in '%s'", root)
}

// Len returns the number of jobs in the group.
func (g *Group) Len() int {
	g.l.RLock()
	defer g.l.RUnlock()

	return len(g.order)
}

// Jobs returns the jobs in the order they were added.
func (g *Group) Jobs() []*ParseFile {
	g.l.RLock()
	defer g.l.RUnlock()

	out := make([]*ParseFile, 0, len(g.order))
	for _, path := range g.order {
		out = append(out, g.jobs[path])
	}
	return out
}

// Get returns the job for a path, if present.
func (g *Group) Get(path string) (*ParseFile, bool) {
	g.l.RLock()
	defer g.l.RUnlock()

	j, ok := g.jobs[path]
	return j, ok
}

// Completed returns true when every job in the group has run.
func (g *Group) Completed() bool {
	for _, j := range g.Jobs() {
		if !j.Completed() {
			return false
		}
	}
	return true
}

// Failures returns the errors of the jobs that failed, in job order.
func (g *Group) Failures() []*ulog.FileError {
	var out []*ulog.FileError
	for _, j := range g.Jobs() {
		if err := j.FileError(); err != nil {
			out = append(out, err)
		}
	}
	return out
}

// Logs returns the logs of the jobs that succeeded, in job order.
func (g *Group) Logs() []*ulog.EventLog {
	var out []*ulog.EventLog
	for _, j := range g.Jobs() {
		j.mu.RLock()
		if j.Log != nil {
			out = append(out, j.Log)
		}
		j.mu.RUnlock()
	}
	return out
}
