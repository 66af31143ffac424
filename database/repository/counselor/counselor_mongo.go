package counselorRepo

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

type mongoCounselorRepo struct {
	coll *mongo.Collection
}

func NewMongoCounselorRepo(coll *mongo.Collection) CounselorRepository {
	return &mongoCounselorRepo{coll: coll}
}

func (r *mongoCounselorRepo) List(ctx context.Context) ([]models.Counselor, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list counselors: %v", models.ErrStoreUnavailable, err)
	}
	var out []models.Counselor
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%w: decode counselors: %v", models.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (r *mongoCounselorRepo) GetByID(ctx context.Context, id int64) (*models.Counselor, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Counselor
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrCounselorNotFound
		}
		return nil, fmt.Errorf("%w: find counselor: %v", models.ErrStoreUnavailable, err)
	}
	return &c, nil
}

func (r *mongoCounselorRepo) Upsert(ctx context.Context, c *models.Counselor) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": c.ID}, c, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: upsert counselor %d: %v", models.ErrStoreUnavailable, c.ID, err)
	}
	return nil
}

func (r *mongoCounselorRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("%w: count counselors: %v", models.ErrStoreUnavailable, err)
	}
	return n, nil
}

// EnsureCounselorIndexes creates the unique id index on the counselors collection.
func EnsureCounselorIndexes(ctx context.Context, coll *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_counselor_id"),
	})
	if err != nil {
		return fmt.Errorf("failed to create counselor indexes: %w", err)
	}
	return nil
}
