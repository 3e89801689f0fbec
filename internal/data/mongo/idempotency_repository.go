package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pixel-money/wallet-core/internal/domain/idempotency"
)

// IdempotencyCollection stores one document per client key, keyed by _id
const IdempotencyCollection = "idempotency_keys"

type idempotencyDoc struct {
	Key           string    `bson:"_id"`
	TransactionID string    `bson:"transaction_id"`
	CreatedAt     time.Time `bson:"created_at"`
}

// IdempotencyRepository implements idempotency.Repository for MongoDB
type IdempotencyRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewIdempotencyRepository creates a new MongoDB idempotency repository.
func NewIdempotencyRepository(logger *slog.Logger, db *mongo.Database) idempotency.Repository {
	return &IdempotencyRepository{
		db:     db,
		logger: logger,
	}
}

// Lookup retrieves the record for a key. Returns ErrKeyNotFound when the
// key has not been used.
func (r *IdempotencyRepository) Lookup(ctx context.Context, key uuid.UUID) (*idempotency.Record, error) {
	filter := bson.M{"_id": key.String()}
	var doc idempotencyDoc
	err := r.db.Collection(IdempotencyCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, idempotency.ErrKeyNotFound{Key: key}
		}
		r.logger.Error("Failed to look up idempotency key", "key", key.String(), "error", err)
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	txID, err := uuid.Parse(doc.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w", doc.TransactionID, err)
	}

	return &idempotency.Record{
		Key:           key,
		TransactionID: txID,
		CreatedAt:     doc.CreatedAt,
	}, nil
}

// Register maps a key to its transaction. Create-only: the unique _id
// turns a duplicate registration into ErrKeyAlreadyRegistered instead of
// silently overwriting.
func (r *IdempotencyRepository) Register(ctx context.Context, key, transactionID uuid.UUID) error {
	doc := idempotencyDoc{
		Key:           key.String(),
		TransactionID: transactionID.String(),
		CreatedAt:     time.Now(),
	}

	_, err := r.db.Collection(IdempotencyCollection).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return idempotency.ErrKeyAlreadyRegistered{Key: key}
		}
		r.logger.Error("Failed to register idempotency key",
			"key", key.String(),
			"transaction_id", transactionID.String(),
			"error", err)
		return fmt.Errorf("failed to register idempotency key: %w", err)
	}

	return nil
}
