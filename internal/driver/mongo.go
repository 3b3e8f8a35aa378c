package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"csvgrid/internal/record"
)

var ErrMongoQuery = errors.New("invalid query format: expected [db.]collection.find({filter})")

type MongoDriver struct {
	uri    string
	client *mongo.Client
}

func NewMongoDriver(uri string) *MongoDriver {
	return &MongoDriver{uri: uri}
}

func (d *MongoDriver) Name() string {
	return Mongo
}

func (d *MongoDriver) connect(ctx context.Context) error {
	if d.client != nil {
		return nil
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(d.uri))
	if err != nil {
		return err
	}
	d.client = client
	return nil
}

func (d *MongoDriver) Ping(ctx context.Context) error {
	if err := d.connect(ctx); err != nil {
		return err
	}
	return d.client.Ping(ctx, nil)
}

// Query runs "db.collection.find({...})" or "collection.find({...})"; the latter uses the
// database named in the connection URI. The streamer yields one record per document.
func (d *MongoDriver) Query(ctx context.Context, query string) (Streamer, error) {
	s, err := d.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d *MongoDriver) Find(ctx context.Context, query string) (*MongoStreamer, error) {
	mq, err := ParseMongoQuery(query)
	if err != nil {
		return nil, err
	}
	if mq.Database == "" {
		cs, err := connstring.ParseAndValidate(d.uri)
		if err != nil {
			return nil, fmt.Errorf("parse mongo uri: %w", err)
		}
		if cs.Database == "" {
			return nil, errors.New("no database in query or connection uri")
		}
		mq.Database = cs.Database
	}

	if err := d.connect(ctx); err != nil {
		return nil, err
	}

	coll := d.client.Database(mq.Database).Collection(mq.Collection)
	cursor, err := coll.Find(ctx, mq.Filter)
	if err != nil {
		return nil, err
	}
	return &MongoStreamer{cursor: cursor, ctx: ctx}, nil
}

func (d *MongoDriver) Close() error {
	if d.client != nil {
		return d.client.Disconnect(context.Background())
	}
	return nil
}

// MongoQuery is a parsed find command.
type MongoQuery struct {
	Database   string
	Collection string
	Filter     bson.M
}

// ParseMongoQuery parses "[db.]collection.find({json filter})".
func ParseMongoQuery(query string) (MongoQuery, error) {
	query = strings.TrimSpace(query)
	start := strings.Index(query, "(")
	end := strings.LastIndex(query, ")")
	if start == -1 || end == -1 || end < start {
		return MongoQuery{}, ErrMongoQuery
	}

	jsonFilter := strings.TrimSpace(query[start+1 : end])
	if jsonFilter == "" {
		jsonFilter = "{}"
	}
	var filter bson.M
	if err := bson.UnmarshalExtJSON([]byte(jsonFilter), false, &filter); err != nil {
		return MongoQuery{}, fmt.Errorf("invalid filter JSON: %w", err)
	}

	segments := strings.Split(query[:start], ".")
	if segments[len(segments)-1] != "find" {
		return MongoQuery{}, errors.New("only 'find' command is supported")
	}

	mq := MongoQuery{Filter: filter}
	switch len(segments) {
	case 3:
		mq.Database, mq.Collection = segments[0], segments[1]
	case 2:
		mq.Collection = segments[0]
	default:
		return MongoQuery{}, ErrMongoQuery
	}
	if mq.Collection == "" {
		return MongoQuery{}, ErrMongoQuery
	}
	return mq, nil
}

// MongoStreamer implements RecordStreamer over a mongo cursor.
type MongoStreamer struct {
	cursor *mongo.Cursor
	ctx    context.Context
	doc    bson.D
	err    error
}

func (s *MongoStreamer) Next() bool {
	if s.cursor.Next(s.ctx) {
		s.doc = nil
		if err := s.cursor.Decode(&s.doc); err != nil {
			s.err = err
			return false
		}
		return true
	}
	s.err = s.cursor.Err()
	return false
}

// Record returns the current document with its field order preserved.
func (s *MongoStreamer) Record() (any, error) {
	return DocumentRecord(s.doc), nil
}

func (s *MongoStreamer) Err() error {
	return s.err
}

func (s *MongoStreamer) Close() error {
	return s.cursor.Close(s.ctx)
}

// DocumentRecord converts a document, and nested documents, into ordered records.
func DocumentRecord(doc bson.D) *record.Ordered {
	keys := make([]string, len(doc))
	values := make([]any, len(doc))
	for i, e := range doc {
		keys[i] = e.Key
		if nested, ok := e.Value.(bson.D); ok {
			values[i] = DocumentRecord(nested)
		} else {
			values[i] = e.Value
		}
	}
	return record.NewOrdered(keys, values)
}
