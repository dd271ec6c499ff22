package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carhive/listing-service/internal/listing/domain"
)

// ListingRepository is the live, MongoDB-backed Listing Store. Every query
// is scoped by owner_id so a cross-owner id match is indistinguishable from
// a missing record.
type ListingRepository struct {
	collection *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{collection: db.Collection("cars")}
}

// EnsureIndexes creates the text index backing full-text search over title,
// description and tags, plus the owner_id index the scoped queries rely on.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "tags", Value: "text"},
			},
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	return nil
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	if err := listing.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	listing.ID = primitive.NewObjectID().Hex()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	doc, err := toListingDocument(listing)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return storeErr("insert listing", err)
	}
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, ownerID, id string) (*domain.Listing, error) {
	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return nil, err
	}

	var doc listingDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("find listing", err)
	}
	return toDomainListing(&doc), nil
}

func (r *ListingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID})
}

func (r *ListingRepository) Update(ctx context.Context, ownerID, id string, upd domain.ListingUpdate) (*domain.Listing, error) {
	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if upd.Title != "" {
		set["title"] = upd.Title
	}
	if upd.Description != "" {
		set["description"] = upd.Description
	}
	if upd.CarType != "" {
		if !upd.CarType.Valid() {
			return nil, fmt.Errorf("%w: unknown car type %q", domain.ErrValidation, upd.CarType)
		}
		set["car_type"] = upd.CarType
	}
	if upd.Company != "" {
		set["company"] = upd.Company
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}
	if upd.Images != nil {
		set["images"] = upd.Images
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc listingDocument
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("update listing", err)
	}
	return toDomainListing(&doc), nil
}

func (r *ListingRepository) Delete(ctx context.Context, ownerID, id string) error {
	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return err
	}

	res, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return storeErr("delete listing", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, ownerID, query string) ([]*domain.Listing, error) {
	return r.find(ctx, bson.M{
		"owner_id": ownerID,
		"$text":    bson.M{"$search": query},
	})
}

func (r *ListingRepository) find(ctx context.Context, filter bson.M) ([]*domain.Listing, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, storeErr("query listings", err)
	}
	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeErr("decode listings", err)
	}
	return toDomainListings(docs), nil
}

// ownedFilter builds the owner-scoped id filter. A malformed id cannot match
// any document, so it surfaces as NotFound rather than a store error.
func ownedFilter(ownerID, id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return bson.M{"_id": oid, "owner_id": ownerID}, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
