/*
Package archive stores the results of summary batches in MongoDB so that
earlier runs can be listed and compared.
*/
package archive

import (
	"context"
	"sync"
	"time"

	"github.com/farmout/ulog"
	"github.com/farmout/ulog/pool"
	"github.com/farmout/ulog/stats"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoDBURI = "mongodb://localhost:27017"

// Options configures the connection to the archive.
type Options struct {
	// Client is used if set; otherwise a client is created from URI
	// and owned by the Store.
	Client *mongo.Client `yaml:"-"`
	// URI is used to connect to MongoDB if no client is specified.
	URI string `yaml:"uri"`
	// DB is the name of the database holding the archive.
	DB string `yaml:"db"`
	// Collection is the collection holding one document per batch.
	Collection string `yaml:"collection"`
	// ConnectTimeout bounds connecting to and pinging the server.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultOptions connects to a MongoDB instance on localhost, using the
// "ulog" database.
func DefaultOptions() Options {
	return Options{
		URI:            defaultMongoDBURI,
		DB:             "ulog",
		Collection:     "batches",
		ConnectTimeout: 5 * time.Second,
	}
}

// Validate validates that the required options are given and sets
// fields that are unspecified and have a default value.
func (opts *Options) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(opts.URI == "" && opts.Client == nil, "must specify connection URI or an existing client")
	catcher.NewWhen(opts.DB == "", "must specify database")
	catcher.NewWhen(opts.Collection == "", "must specify collection")
	catcher.NewWhen(opts.ConnectTimeout < 0, "connect timeout cannot be negative")
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = DefaultOptions().ConnectTimeout
	}
	return catcher.Resolve()
}

// Batch is the archived record of one summary run.
type Batch struct {
	ID          string         `bson:"_id" json:"id" yaml:"id"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at" yaml:"created_at"`
	Host        string         `bson:"host,omitempty" json:"host,omitempty" yaml:"host,omitempty"`
	Files       int            `bson:"files" json:"files" yaml:"files"`
	Parsed      int            `bson:"parsed" json:"parsed" yaml:"parsed"`
	FailedPaths []string       `bson:"failed_paths,omitempty" json:"failed_paths,omitempty" yaml:"failed_paths,omitempty"`
	Duration    time.Duration  `bson:"duration" json:"duration" yaml:"duration"`
	Summaries   []ulog.Summary `bson:"summaries,omitempty" json:"summaries,omitempty" yaml:"summaries,omitempty"`
	Report      *stats.Report  `bson:"report" json:"report" yaml:"report"`
}

// NewBatch builds the archive record of a pool run and the report it
// produced.
func NewBatch(res *pool.Result, report *stats.Report) *Batch {
	b := &Batch{
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Report:    report,
	}
	if res != nil {
		b.ID = res.BatchID
		b.Files = res.Files
		b.Parsed = res.Parsed
		b.FailedPaths = res.FailedPaths
		b.Duration = res.Duration
		b.Summaries = res.Summaries
	}
	return b
}

// Store reads and writes batches.
type Store struct {
	opts       Options
	client     *mongo.Client
	ownsClient bool
	mu         sync.Mutex
	closed     bool
}

// Open connects to the archive. If opts.Client is nil a new client is
// created from opts.URI and closed by Close.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid archive options")
	}

	s := &Store{opts: opts, client: opts.Client}

	connCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if s.client == nil {
		client, err := mongo.Connect(connCtx, options.Client().ApplyURI(opts.URI).SetConnectTimeout(opts.ConnectTimeout))
		if err != nil {
			return nil, errors.Wrapf(err, "opening connection to DB at URI '%s'", opts.URI)
		}
		s.client = client
		s.ownsClient = true
	}

	if err := s.client.Ping(connCtx, nil); err != nil {
		if s.ownsClient {
			grip.Warning(message.WrapError(s.client.Disconnect(ctx), "closing client after failed ping"))
		}
		return nil, errors.Wrap(err, "pinging archive database")
	}

	if _, err := s.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("created_at"),
	}); err != nil {
		s.closeClient(ctx)
		return nil, errors.Wrap(err, "building archive index")
	}

	return s, nil
}

func (s *Store) collection() *mongo.Collection {
	return s.client.Database(s.opts.DB).Collection(s.opts.Collection)
}

// Save inserts a batch. The batch must have an id.
func (s *Store) Save(ctx context.Context, b *Batch) error {
	if b == nil || b.ID == "" {
		return errors.New("cannot archive batch without an id")
	}
	if err := s.check(); err != nil {
		return err
	}

	if _, err := s.collection().InsertOne(ctx, b); err != nil {
		return errors.Wrapf(err, "archiving batch '%s'", b.ID)
	}

	grip.Debug(message.Fields{
		"message":    "archived batch",
		"batch":      b.ID,
		"files":      b.Files,
		"db":         s.opts.DB,
		"collection": s.opts.Collection,
	})

	return nil
}

// Get returns the batch with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Batch, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	b := &Batch{}
	if err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Errorf("batch '%s' not found", id)
		}
		return nil, errors.Wrapf(err, "finding batch '%s'", id)
	}

	return b, nil
}

// Recent returns up to limit batches, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Batch, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if err := s.check(); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding recent batches")
	}

	out := []*Batch{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decoding recent batches")
	}

	return out, nil
}

// Close releases the client if the store created it.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if !s.ownsClient {
		return nil
	}
	return errors.Wrap(s.client.Disconnect(ctx), "closing archive connection")
}

func (s *Store) closeClient(ctx context.Context) {
	if s.ownsClient {
		grip.Warning(message.WrapError(s.client.Disconnect(ctx), "closing archive connection"))
	}
}

func (s *Store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("archive is closed")
	}
	return nil
}
