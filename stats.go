package ulog

import "github.com/mongodb/grip"

// Summary is a count of job outcomes in one EventLog, as returned by
// the EventLog.Summary method.
type Summary struct {
	Source      string `bson:"source" json:"source" yaml:"source"`
	Submitted   int    `bson:"submitted" json:"submitted" yaml:"submitted"`
	Succeeded   int    `bson:"succeeded" json:"succeeded" yaml:"succeeded"`
	Failed      int    `bson:"failed" json:"failed" yaml:"failed"`
	Aborted     int    `bson:"aborted" json:"aborted" yaml:"aborted"`
	Interrupted int    `bson:"interrupted" json:"interrupted" yaml:"interrupted"`
	Pending     int    `bson:"pending" json:"pending" yaml:"pending"`
}

// IsComplete is true when no submitted job is still outstanding.
func (s Summary) IsComplete() bool {
	grip.Debugf("%d jobs pending of %d submitted in '%s'", s.Pending, s.Submitted, s.Source)
	return s.Pending == 0
}
