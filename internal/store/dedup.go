package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ozon-reports/internal/parse"
	"ozon-reports/pkg/logger"
)

const (
	// DedupField holds the md5 over the declared key fields. A unique
	// index on it makes re-running a pipeline for the same day a no-op.
	DedupField = "dedup_md5"

	dedupBatchSize   = 1000
	duplicateKeyCode = 11000
)

// DedupHash joins the key field values with "|" and hashes the result.
// Every key field must be present in the document so two records never
// collapse into one hash by both missing a field.
func DedupHash(doc map[string]any, keyFields []string) (string, error) {
	var missing []string
	parts := make([]string, 0, len(keyFields))
	for _, f := range keyFields {
		v, ok := doc[f]
		if !ok {
			missing = append(missing, f)
			continue
		}
		parts = append(parts, parse.Stringify(v))
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("record is missing dedup key fields: %s", strings.Join(missing, ", "))
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:]), nil
}

// WithDedupHash returns a copy of the records with the hash column added,
// deduplicated within the batch itself (first occurrence wins) so one bulk
// write never races against its own duplicates.
func WithDedupHash(records []map[string]any, keyFields []string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		hash, err := DedupHash(rec, keyFields)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if seen[hash] {
			continue
		}
		seen[hash] = true

		withHash := make(map[string]any, len(rec)+1)
		for k, v := range rec {
			withHash[k] = v
		}
		withHash[DedupField] = hash
		out = append(out, withHash)
	}
	return out, nil
}

// EnsureDedupIndex creates the unique index on the hash column. Creating
// an index that already exists is a no-op on the server.
func EnsureDedupIndex(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: DedupField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(DedupField + "_uniq"),
	})
	if err != nil {
		return fmt.Errorf("create dedup index on %s: %w", coll.Name(), err)
	}
	return nil
}

// InsertDedup bulk-inserts the records with the hash column, skipping rows
// whose hash already exists. Returns how many were inserted and how many
// were skipped as duplicates.
func InsertDedup(ctx context.Context, coll *mongo.Collection, records []map[string]any, keyFields []string) (inserted, duplicates int, err error) {
	if len(records) == 0 {
		return 0, 0, nil
	}
	if err := EnsureDedupIndex(ctx, coll); err != nil {
		return 0, 0, err
	}
	hashed, err := WithDedupHash(records, keyFields)
	if err != nil {
		return 0, 0, err
	}
	duplicates += len(records) - len(hashed)

	for start := 0; start < len(hashed); start += dedupBatchSize {
		end := start + dedupBatchSize
		if end > len(hashed) {
			end = len(hashed)
		}
		batch := make([]any, 0, end-start)
		for _, rec := range hashed[start:end] {
			batch = append(batch, rec)
		}

		res, insErr := coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
		if res != nil {
			inserted += len(res.InsertedIDs)
		}
		if insErr != nil {
			bulkErr, ok := insErr.(mongo.BulkWriteException)
			if !ok {
				return inserted, duplicates, fmt.Errorf("insert into %s: %w", coll.Name(), insErr)
			}
			for _, we := range bulkErr.WriteErrors {
				if we.Code != duplicateKeyCode {
					return inserted, duplicates, fmt.Errorf("insert into %s: %w", coll.Name(), insErr)
				}
				duplicates++
			}
		}
	}

	logger.Log.Info().
		Str("collection", coll.Name()).
		Int("inserted", inserted).
		Int("duplicates", duplicates).
		Msg("dedup insert complete")
	return inserted, duplicates, nil
}
