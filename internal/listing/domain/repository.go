package domain

import "context"

// ListingRepository is the ownership-scoped persistence port. Every read,
// update and delete is filtered by ownerID; an id match under a different
// owner is reported as ErrNotFound.
type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, ownerID, id string) (*Listing, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*Listing, error)
	Update(ctx context.Context, ownerID, id string, upd ListingUpdate) (*Listing, error)
	Delete(ctx context.Context, ownerID, id string) error
	Search(ctx context.Context, ownerID, query string) ([]*Listing, error)
}

// ImageStorage materializes an encoded image payload into a durable URL.
// Payloads that are already URLs are returned unchanged.
type ImageStorage interface {
	Upload(ctx context.Context, payload string) (string, error)
}
