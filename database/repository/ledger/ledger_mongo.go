package ledgerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindease/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoOpTimeout = 5 * time.Second

// bookingDoc adds the "active" flag the partial unique index filters on. It is true
// exactly when the status is held or confirmed and is written with every status change.
type bookingDoc struct {
	models.Booking `bson:",inline"`
	Active         bool `bson:"active"`
}

// MongoLedger implements BookingLedger using MongoDB.
type MongoLedger struct {
	coll    *mongo.Collection
	holdTTL time.Duration
	now     func() time.Time
}

// NewMongoLedger constructs a ledger over the bookings collection.
func NewMongoLedger(coll *mongo.Collection, holdTTL time.Duration) *MongoLedger {
	return &MongoLedger{coll: coll, holdTTL: holdTTL, now: time.Now}
}

func (r *MongoLedger) Get(ctx context.Context, key models.SlotKey) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{
		"counselor_id": key.CounselorID,
		"date_iso":     key.DateISO,
		"time":         key.Time,
		"active":       true,
	})
}

func (r *MongoLedger) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoLedger) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var doc bookingDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("%w: find booking: %v", models.ErrStoreUnavailable, err)
	}
	return &doc.Booking, nil
}

// InsertIfAbsent relies on the unique_active_slot index; a duplicate key error is a lost race.
func (r *MongoLedger) InsertIfAbsent(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	doc := bookingDoc{Booking: *b, Active: b.Status.Active()}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrSlotConflict
		}
		return fmt.Errorf("%w: insert booking: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *MongoLedger) Transition(ctx context.Context, id string, from, to models.BookingStatus, extra models.TransitionExtra) (*models.Booking, error) {
	if !transitionAllowed(from, to) {
		return nil, fmt.Errorf("ledger: transition %s -> %s is not allowed", from, to)
	}
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	set := bson.M{
		"status":     to,
		"active":     to.Active(),
		"updated_at": r.now().UTC(),
	}
	if to == models.StatusConfirmed {
		set["payment_id"] = extra.PaymentID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bookingDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id, "status": from}, bson.M{"$set": set}, opts).Decode(&doc)
	if err == nil {
		return &doc.Booking, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: transition booking %s: %v", models.ErrStoreUnavailable, id, err)
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, models.ErrStaleState
}

func (r *MongoLedger) AttachSession(ctx context.Context, id, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": models.StatusHeld},
		bson.M{"$set": bson.M{"session_id": sessionID, "updated_at": r.now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("%w: attach session to %s: %v", models.ErrStoreUnavailable, id, err)
	}
	if res.MatchedCount == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return models.ErrStaleState
	}
	return nil
}

// SweepExpiredHolds expires each stale hold with its own guarded update, so a hold
// confirmed between the scan and the update is left alone.
func (r *MongoLedger) SweepExpiredHolds(ctx context.Context, now time.Time) ([]string, error) {
	cutoff := now.Add(-r.holdTTL).UTC()

	scanCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	cursor, err := r.coll.Find(scanCtx,
		bson.M{"status": models.StatusHeld, "created_at": bson.M{"$lt": cutoff}},
		options.Find().SetProjection(bson.M{"id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: scan expired holds: %v", models.ErrStoreUnavailable, err)
	}
	var stale []struct {
		ID string `bson:"id"`
	}
	if err := cursor.All(scanCtx, &stale); err != nil {
		return nil, fmt.Errorf("%w: decode expired holds: %v", models.ErrStoreUnavailable, err)
	}

	var expired []string
	for _, s := range stale {
		if _, err := r.Transition(ctx, s.ID, models.StatusHeld, models.StatusExpired, models.TransitionExtra{}); err != nil {
			if errors.Is(err, models.ErrStaleState) || errors.Is(err, models.ErrBookingNotFound) {
				continue
			}
			return expired, err
		}
		expired = append(expired, s.ID)
	}
	return expired, nil
}

func (r *MongoLedger) ActiveSlots(ctx context.Context, counselorID int64, fromISO, toISO string) ([]models.SlotKey, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{
		"counselor_id": counselorID,
		"active":       true,
		"date_iso":     bson.M{"$gte": fromISO, "$lte": toISO},
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"counselor_id": 1, "date_iso": 1, "time": 1}))
	if err != nil {
		return nil, fmt.Errorf("%w: find active slots: %v", models.ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var keys []models.SlotKey
	for cursor.Next(ctx) {
		var doc bookingDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode active slot: %v", models.ErrStoreUnavailable, err)
		}
		keys = append(keys, doc.Key())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor error: %v", models.ErrStoreUnavailable, err)
	}
	return keys, nil
}

func (r *MongoLedger) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.CounselorID != 0 {
		filter["counselor_id"] = f.CounselorID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(listLimit(f)))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list bookings: %v", models.ErrStoreUnavailable, err)
	}
	var docs []bookingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode bookings: %v", models.ErrStoreUnavailable, err)
	}
	out := make([]models.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Booking)
	}
	return out, nil
}
