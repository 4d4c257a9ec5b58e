package archive

import (
	"context"
	"testing"
	"time"

	"github.com/evergreen-ci/utility"
	"github.com/farmout/ulog"
	"github.com/farmout/ulog/pool"
	"github.com/farmout/ulog/stats"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestOptions() Options {
	opts := DefaultOptions()
	opts.DB = "ulog_test"
	opts.Collection = "test." + utility.RandomString()
	opts.ConnectTimeout = time.Second
	return opts
}

func testReport() *stats.Report {
	code := 0
	start := time.Date(2024, time.January, 2, 3, 0, 0, 0, time.UTC)
	r := stats.NewReport(stats.Options{})
	r.Add(&ulog.EventLog{
		SourceName: "a.log",
		Events: []*ulog.EventRecord{
			{Kind: ulog.Executing, JobID: "1.0", Timestamp: start, RemoteHost: "<10.1.1.1:9618>"},
			{Kind: ulog.JobAdInformation, JobID: "1.0", GlideinSite: "Wisc"},
			{Kind: ulog.Terminated, JobID: "1.0", Timestamp: start.Add(2 * time.Hour), ExitCode: &code},
		},
	})
	return r
}

func TestOptionsValidate(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		opts := DefaultOptions()
		assert.NoError(t, opts.Validate())
	})
	t.Run("MissingURIAndClient", func(t *testing.T) {
		opts := DefaultOptions()
		opts.URI = ""
		assert.Error(t, opts.Validate())
	})
	t.Run("MissingCollection", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Collection = ""
		assert.Error(t, opts.Validate())
	})
	t.Run("ZeroTimeoutGetsDefault", func(t *testing.T) {
		opts := DefaultOptions()
		opts.ConnectTimeout = 0
		require.NoError(t, opts.Validate())
		assert.Equal(t, DefaultOptions().ConnectTimeout, opts.ConnectTimeout)
	})
}

func TestNewBatch(t *testing.T) {
	res := &pool.Result{
		BatchID:     uuid.New().String(),
		Files:       3,
		Parsed:      2,
		FailedPaths: []string{"c.log"},
		Duration:    time.Second,
	}
	b := NewBatch(res, testReport())
	assert.Equal(t, res.BatchID, b.ID)
	assert.Equal(t, 3, b.Files)
	assert.Equal(t, 2, b.Parsed)
	assert.Equal(t, []string{"c.log"}, b.FailedPaths)
	assert.False(t, b.CreatedAt.IsZero())

	assert.Empty(t, NewBatch(nil, nil).ID)
}

func TestStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := defaultTestOptions()
	store, err := Open(ctx, opts)
	if err != nil {
		t.Skipf("no MongoDB server available: %s", err)
	}
	defer func() { assert.NoError(t, store.Close(ctx)) }()

	t.Run("SaveAndGet", func(t *testing.T) {
		b := NewBatch(&pool.Result{BatchID: uuid.New().String(), Files: 1, Parsed: 1}, testReport())
		require.NoError(t, store.Save(ctx, b))
		assert.Error(t, store.Save(ctx, b))

		out, err := store.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, out.ID)
		assert.Equal(t, 1, out.Files)
		require.NotNil(t, out.Report)
		assert.Equal(t, 1, out.Report.GoodJobs)
		assert.InDelta(t, 2.0, out.Report.GoodHours, 1e-9)
		require.NotNil(t, out.Report.Site("Wisc"))
		assert.Equal(t, 1, out.Report.Site("Wisc").GoodJobs)
	})
	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, "does-not-exist")
		assert.Error(t, err)
	})
	t.Run("SaveRequiresID", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, NewBatch(nil, testReport())))
		assert.Error(t, store.Save(ctx, nil))
	})
	t.Run("RecentIsNewestFirst", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Millisecond)
		for i := 0; i < 3; i++ {
			b := NewBatch(&pool.Result{BatchID: uuid.New().String(), Files: i}, testReport())
			b.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			require.NoError(t, store.Save(ctx, b))
		}

		recent, err := store.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, 2, recent[0].Files)
		assert.Equal(t, 1, recent[1].Files)

		_, err = store.Recent(ctx, 0)
		assert.Error(t, err)
	})
}

func TestOpenWithBadURI(t *testing.T) {
	opts := defaultTestOptions()
	opts.URI = "mongodb://lochost:26016"
	opts.ConnectTimeout = 100 * time.Millisecond

	store, err := Open(context.Background(), opts)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestClosedStore(t *testing.T) {
	s := &Store{opts: DefaultOptions(), closed: true}
	assert.NoError(t, s.Close(context.Background()))
	assert.Error(t, s.Save(context.Background(), &Batch{ID: "x"}))
	_, err := s.Get(context.Background(), "x")
	assert.Error(t, err)
	_, err = s.Recent(context.Background(), 1)
	assert.Error(t, err)
}
