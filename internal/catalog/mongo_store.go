package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nerrad567/catalog-core/internal/infrastructure/config"
)

// Default MongoDB settings.
const (
	defaultMongoDatabase   = "catalog"
	defaultMongoCollection = "products"
	defaultMongoTimeout    = 10 * time.Second
)

// MongoStore implements Store on a MongoDB collection.
// Uniqueness of the business id is enforced by a unique index.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// ConnectMongo connects, pings the primary and ensures the id index exists.
func ConnectMongo(ctx context.Context, cfg config.MongoDBConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("catalog: mongodb uri is required")
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}
	collName := cfg.Collection
	if collName == "" {
		collName = defaultMongoCollection
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, mongoErr("connecting", err)
	}

	s := &MongoStore{
		client:  client,
		coll:    client.Database(dbName).Collection(collName),
		timeout: timeout,
	}

	if err := s.HealthCheck(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: FieldID, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_product_id"),
	})
	if err != nil {
		return mongoErr("creating id index", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FindByID implements Store.
func (s *MongoStore) FindByID(ctx context.Context, id int64) (Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc bson.M
	err := s.coll.FindOne(ctx, bson.M{FieldID: id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, mongoErr("finding product", err)
	}
	return productFromBSON(doc), nil
}

// FindMany implements Store.
func (s *MongoStore) FindMany(ctx context.Context, filter Filter, page Page) ([]Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := mongoFilter(filter)

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mongoErr("counting products", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: FieldID, Value: 1}}).
		SetSkip(int64(page.Skip))
	if page.Limit > 0 {
		findOpts.SetLimit(int64(page.Limit))
	}

	cursor, err := s.coll.Find(ctx, query, findOpts)
	if err != nil {
		return nil, 0, mongoErr("finding products", err)
	}
	defer cursor.Close(ctx)

	var products []Product
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decoding product: %w", err)
		}
		products = append(products, productFromBSON(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, mongoErr("iterating products", err)
	}

	return products, total, nil
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, p Product) (string, error) {
	id, err := p.ID()
	if err != nil {
		return "", err
	}

	doc := bson.M{}
	for k, v := range p {
		if k == FieldStorageID {
			continue
		}
		doc[k] = v
	}
	doc[FieldID] = id

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicateID
		}
		return "", mongoErr("inserting product", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

// UpdatePartial implements Store using $set.
func (s *MongoStore) UpdatePartial(ctx context.Context, id int64, fields Product) (int64, error) {
	set := bson.M{}
	for k, v := range fields {
		if k == FieldID || k == FieldStorageID {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return s.CountMatching(ctx, ByID(id))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, bson.M{FieldID: id}, bson.M{"$set": set})
	if err != nil {
		return 0, mongoErr("updating product", err)
	}
	return res.MatchedCount, nil
}

// DeleteByID implements Store.
func (s *MongoStore) DeleteByID(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{FieldID: id})
	if err != nil {
		return 0, mongoErr("deleting product", err)
	}
	return res.DeletedCount, nil
}

// CountMatching implements Store.
func (s *MongoStore) CountMatching(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, mongoFilter(filter))
	if err != nil {
		return 0, mongoErr("counting products", err)
	}
	return n, nil
}

// HealthCheck implements Store.
func (s *MongoStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return mongoErr("ping", err)
	}
	return nil
}

func mongoFilter(filter Filter) bson.M {
	query := bson.M{}
	if filter.ID != nil {
		query[FieldID] = *filter.ID
	}
	if filter.Category != "" {
		query[FieldCategory] = bson.M{
			"$regex":   regexp.QuoteMeta(filter.Category),
			"$options": "i",
		}
	}
	return query
}

// productFromBSON converts a decoded document into plain Go values:
// ObjectIDs become hex strings and int32 widens to int64.
func productFromBSON(doc bson.M) Product {
	return Product(fromBSON(map[string]any(doc)).(map[string]any))
}

func fromBSON(v any) any {
	switch x := v.(type) {
	case bson.M:
		return fromBSON(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = fromBSON(item)
		}
		return out
	case bson.A:
		return fromBSON([]any(x))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = fromBSON(item)
		}
		return out
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return int64(x)
	case primitive.DateTime:
		return x.Time().UTC()
	default:
		return v
	}
}

// mongoErr wraps err, adding ErrStoreUnavailable for connectivity failures.
func mongoErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
