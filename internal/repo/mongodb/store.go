package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound means the record is genuinely absent. It is never returned
	// for transport failures.
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable means the store could not be reached or timed out.
	// Callers must not interpret it as an empty record, and must not assume
	// any write took effect.
	ErrStoreUnavailable = errors.New("store unavailable")
)

const defaultCallTimeout = 5 * time.Second

// Store maps logical key paths (collection/{id}) onto the backing document
// store. Reads distinguish absent from unreachable; writes are partial
// patches that merge fields into the existing record.
type Store struct {
	db      *mongo.Database
	timeout time.Duration
}

func NewStore(client *mongo.Client, database string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Store{
		db:      client.Database(database),
		timeout: timeout,
	}
}

func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Get decodes the record at collection/{id} into out. Returns ErrNotFound
// when absent and ErrStoreUnavailable on transport failure.
func (s *Store) Get(ctx context.Context, collection string, id any, out any) error {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	err := s.db.Collection(collection).FindOne(cctx, bson.M{"_id": id}).Decode(out)
	return classify("get "+collection, err)
}

// Patch merges fields into the record at collection/{id}, leaving other
// fields untouched. The record must already exist.
func (s *Store) Patch(ctx context.Context, collection string, id any, fields bson.M) error {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	res, err := s.db.Collection(collection).UpdateOne(cctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return classify("patch "+collection, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PatchUpsert merges fields into collection/{id}, creating the record with
// the given insert-only defaults when absent.
func (s *Store) PatchUpsert(ctx context.Context, collection string, id any, fields, insertDefaults bson.M) error {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	update := bson.M{"$set": fields}
	if len(insertDefaults) > 0 {
		update["$setOnInsert"] = insertDefaults
	}

	_, err := s.db.Collection(collection).UpdateOne(
		cctx,
		bson.M{"_id": id},
		update,
		options.Update().SetUpsert(true),
	)
	return classify("patch upsert "+collection, err)
}

// classify folds driver errors into the two kinds callers branch on. A read
// failure must never masquerade as an absent record: only ErrNoDocuments
// maps to ErrNotFound, everything transient maps to ErrStoreUnavailable.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case isTransient(err):
		return fmt.Errorf("%s: %w: %s", op, ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isTransient(err error) bool {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, mongo.ErrClientDisconnected)
}
