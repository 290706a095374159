package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database. Documents are
// addressed by the "_id" field; the adapter keeps the application-level
// id out of the document body.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and pings the deployment.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(database),
	}, nil
}

func (s *MongoStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) SetDocument(ctx context.Context, collection, id string, fields Document, merge bool) error {
	coll := s.db.Collection(collection)

	if merge {
		update := bson.M{"$set": bson.M(fields)}
		opts := options.Update().SetUpsert(true)
		_, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update, opts)
		return err
	}

	doc := bson.M(fields.Clone())
	doc["_id"] = id
	opts := options.Replace().SetUpsert(true)
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts)
	return err
}

func (s *MongoStore) UpdateDocument(ctx context.Context, collection, id string, fields Document) error {
	result, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Query(ctx context.Context, collection string, filters []Filter, opts ...QueryOption) ([]Document, error) {
	o := applyOptions(opts)

	filter := bson.M{}
	for _, f := range filters {
		filter[f.Field] = f.Value
	}

	findOpts := options.Find()
	if o.OrderBy != nil {
		dir := 1
		if o.OrderBy.Desc {
			dir = -1
		}
		findOpts.SetSort(bson.D{{Key: o.OrderBy.Field, Value: dir}})
	}
	if o.Limit > 0 {
		findOpts.SetLimit(o.Limit)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}

	results := make([]Document, 0, len(raws))
	for _, raw := range raws {
		results = append(results, fromBSON(raw))
	}
	return results, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// fromBSON converts a decoded bson document, dropping the driver-level
// "_id" key (the body carries the application id) and normalizing bson
// array types.
func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		if arr, ok := v.(bson.A); ok {
			v = []any(arr)
		}
		doc[k] = v
	}
	return doc
}
