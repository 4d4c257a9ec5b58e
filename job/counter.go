// Package job provides the unit of work used to process user logs: a
// ParseFile job reads and parses one file, and a Group collects the
// jobs of one batch.
package job

var jobIDSource <-chan int

func init() {
	jobIDSource = func() <-chan int {
		out := make(chan int, 10)
		go func() {
			var jobID int
			for {
				jobID++
				out <- jobID
			}
		}()
		return out
	}()
}

// GetNumber is a source of safe monotonically increasing integers
// for use in job ids.
func GetNumber() int {
	return <-jobIDSource
}
