// Package mongo provides MongoDB implementations of the ledger and
// idempotency repositories. The ledger is written through three
// access-pattern projections that are always applied together.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
)

// Collection names for the three ledger projections
const (
	TransactionsCollection = "transactions"
	ByUserCollection       = "transactions_by_user"
	ByGroupCollection      = "transactions_by_group"
)

// transactionDoc is the persisted layout shared by all projections.
// Amounts are stored as canonical decimal strings.
type transactionDoc struct {
	ID               string            `bson:"_id"`
	ActingUserID     int64             `bson:"acting_user_id"`
	ActingGroupID    *int64            `bson:"acting_group_id,omitempty"`
	SourceWalletType string            `bson:"source_wallet_type"`
	SourceWalletID   string            `bson:"source_wallet_id"`
	DestWalletType   string            `bson:"destination_wallet_type"`
	DestWalletID     string            `bson:"destination_wallet_id"`
	Type             string            `bson:"type"`
	Amount           string            `bson:"amount"`
	Currency         string            `bson:"currency"`
	Status           string            `bson:"status"`
	Metadata         map[string]string `bson:"metadata,omitempty"`
	CreatedAt        time.Time         `bson:"created_at"`
	UpdatedAt        time.Time         `bson:"updated_at"`
}

func docFromTransaction(tx *ledger.Transaction) *transactionDoc {
	return &transactionDoc{
		ID:               tx.ID.String(),
		ActingUserID:     tx.ActingUserID,
		ActingGroupID:    tx.ActingGroupID,
		SourceWalletType: string(tx.SourceWalletType),
		SourceWalletID:   tx.SourceWalletID,
		DestWalletType:   string(tx.DestWalletType),
		DestWalletID:     tx.DestWalletID,
		Type:             string(tx.Type),
		Amount:           tx.Amount.StringFixed(2),
		Currency:         tx.Currency,
		Status:           string(tx.Status),
		Metadata:         tx.Metadata,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
	}
}

func (d *transactionDoc) toTransaction() (*ledger.Transaction, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w", d.ID, err)
	}
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", d.Amount, err)
	}

	return &ledger.Transaction{
		ID:               id,
		ActingUserID:     d.ActingUserID,
		ActingGroupID:    d.ActingGroupID,
		SourceWalletType: ledger.WalletType(d.SourceWalletType),
		SourceWalletID:   d.SourceWalletID,
		DestWalletType:   ledger.WalletType(d.DestWalletType),
		DestWalletID:     d.DestWalletID,
		Type:             ledger.Type(d.Type),
		Amount:           amount,
		Currency:         d.Currency,
		Status:           ledger.Status(d.Status),
		Metadata:         d.Metadata,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

// LedgerRepository implements ledger.Repository for MongoDB
type LedgerRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository. The client
// is needed for multi-collection session transactions.
func NewLedgerRepository(logger *slog.Logger, client *mongo.Client, db *mongo.Database) ledger.Repository {
	return &LedgerRepository{
		client: client,
		db:     db,
		logger: logger,
	}
}

// Apply writes every record in the set into all of its projections inside
// one session transaction. Group-scoped records project into the by-group
// collection, everything else into the by-user collection; all records go
// into the primary collection. Partial application never happens: any
// failure aborts the whole batch.
func (r *LedgerRepository) Apply(ctx context.Context, ws *ledger.WriteSet) error {
	if len(ws.Records) == 0 {
		return errors.New("write set cannot be empty")
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, tx := range ws.Records {
			doc := docFromTransaction(tx)

			if _, err := r.db.Collection(TransactionsCollection).InsertOne(sc, doc); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return nil, ledger.ErrDuplicateTransaction{ID: tx.ID}
				}
				return nil, fmt.Errorf("failed to insert transaction: %w", err)
			}

			projection := ByUserCollection
			if tx.ActingGroupID != nil {
				projection = ByGroupCollection
			}
			if _, err := r.db.Collection(projection).InsertOne(sc, doc); err != nil {
				return nil, fmt.Errorf("failed to insert %s projection: %w", projection, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		r.logger.Error("Failed to apply ledger write set", "records", len(ws.Records), "error", err)
		return err
	}

	return nil
}

// Finalize moves the given transactions to a terminal status across all
// projections, merging any metadata, as one atomic batch.
func (r *LedgerRepository) Finalize(ctx context.Context, ids []uuid.UUID, status ledger.Status, metadata map[string]string) error {
	if len(ids) == 0 {
		return errors.New("no transaction ids to finalize")
	}

	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, id.String())
	}

	set := bson.M{
		"status":     string(status),
		"updated_at": time.Now(),
	}
	for k, v := range metadata {
		set["metadata."+k] = v
	}

	filter := bson.M{"_id": bson.M{"$in": idStrings}}
	update := bson.M{"$set": set}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := r.db.Collection(TransactionsCollection).UpdateMany(sc, filter, update)
		if err != nil {
			return nil, fmt.Errorf("failed to finalize transactions: %w", err)
		}
		if result.MatchedCount == 0 {
			return nil, ledger.ErrTransactionNotFound{ID: ids[0]}
		}

		for _, projection := range []string{ByUserCollection, ByGroupCollection} {
			if _, err := r.db.Collection(projection).UpdateMany(sc, filter, update); err != nil {
				return nil, fmt.Errorf("failed to finalize %s projection: %w", projection, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		r.logger.Error("Failed to finalize transactions",
			"ids", idStrings,
			"status", string(status),
			"error", err)
		return err
	}

	return nil
}

// GetByID retrieves a transaction from the primary projection
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	filter := bson.M{"_id": id.String()}
	var doc transactionDoc
	err := r.db.Collection(TransactionsCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return doc.toTransaction()
}

// ListByUser retrieves a user's most recent transactions, newest first
func (r *LedgerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*ledger.Transaction, error) {
	filter := bson.M{"acting_user_id": userID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	return r.list(ctx, ByUserCollection, filter, opts)
}

// ListByUserSince retrieves a user's transactions from the given instant
// onward, oldest first, for the daily-balance replay.
func (r *LedgerRepository) ListByUserSince(ctx context.Context, userID int64, since time.Time) ([]*ledger.Transaction, error) {
	filter := bson.M{
		"acting_user_id": userID,
		"created_at":     bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	return r.list(ctx, ByUserCollection, filter, opts)
}

// ListByGroup retrieves a group's most recent transactions, newest first
func (r *LedgerRepository) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*ledger.Transaction, error) {
	filter := bson.M{"acting_group_id": groupID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	return r.list(ctx, ByGroupCollection, filter, opts)
}

// ListByStatus retrieves transactions in the given status created before
// olderThan, oldest first. Used by the reconciler to find stuck records.
func (r *LedgerRepository) ListByStatus(ctx context.Context, status ledger.Status, olderThan time.Time, limit int) ([]*ledger.Transaction, error) {
	filter := bson.M{
		"status":     string(status),
		"created_at": bson.M{"$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": 1}).
		SetLimit(int64(limit))

	return r.list(ctx, TransactionsCollection, filter, opts)
}

func (r *LedgerRepository) list(ctx context.Context, collection string, filter bson.M, opts *options.FindOptions) ([]*ledger.Transaction, error) {
	cursor, err := r.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to query transactions", "collection", collection, "error", err)
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*transactionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode transactions", "collection", collection, "error", err)
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	transactions := make([]*ledger.Transaction, 0, len(docs))
	for _, doc := range docs {
		tx, err := doc.toTransaction()
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}
