// Package store is the document database boundary: order and accrual
// readers, the ads campaign collections, and the dedup-insert writer the
// pipelines publish through.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"ozon-reports/pkg/logger"
)

const connectTimeout = 10 * time.Second

// Connect opens a client against the given URI and verifies the connection
// with a ping before returning it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Log.Debug().Msg("mongo connection established")
	return client, nil
}

// FetchAll reads every document of a collection into generic maps, with an
// optional projection. The ads collections and the pivot peek path both
// need untyped documents because their field sets drift between uploads.
func FetchAll(ctx context.Context, coll *mongo.Collection, projection bson.D) ([]map[string]any, error) {
	opts := options.Find()
	if projection != nil {
		opts.SetProjection(projection)
	}
	cur, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	var docs []map[string]any
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return docs, nil
}
