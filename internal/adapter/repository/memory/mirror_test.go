package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carhive/listing-service/internal/listing/domain"
)

func newListing(owner string) *domain.Listing {
	return &domain.Listing{
		OwnerID:     owner,
		Title:       "2023 Tesla Model S",
		Description: "Luxury electric sedan.",
		Images:      []string{"https://cdn.example.com/tesla.png"},
		CarType:     domain.CarTypeElectric,
		Company:     "Tesla",
		Tags:        []string{"electric", "luxury"},
	}
}

func TestSeededMirrorInventory(t *testing.T) {
	ctx := context.Background()
	m := NewSeededMirror()

	listings, err := m.FindByOwner(ctx, domain.DemoOwner)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "demo-1", listings[0].ID)
	assert.Equal(t, "2023 Tesla Model S", listings[0].Title)
	assert.Equal(t, "demo-2", listings[1].ID)
	assert.Equal(t, "2023 Porsche 911 GT3", listings[1].Title)

	// Ids continue from the seed count.
	l := newListing(domain.DemoOwner)
	require.NoError(t, m.Create(ctx, l))
	assert.Equal(t, "demo-3", l.ID)
}

func TestMirrorCreateAssignsServerFields(t *testing.T) {
	ctx := context.Background()
	m := NewMirrorRepository()

	l := newListing("owner-a")
	require.NoError(t, m.Create(ctx, l))
	assert.Equal(t, "demo-1", l.ID)
	assert.False(t, l.CreatedAt.IsZero())
	assert.Equal(t, l.CreatedAt, l.UpdatedAt, "createdAt equals updatedAt at creation")

	got, err := m.FindByID(ctx, "owner-a", l.ID)
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestMirrorCreateRejectsInvalid(t *testing.T) {
	m := NewMirrorRepository()

	l := newListing("owner-a")
	l.CarType = "Motorcycle"
	err := m.Create(context.Background(), l)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestMirrorOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMirrorRepository()

	l := newListing("owner-a")
	require.NoError(t, m.Create(ctx, l))

	// Cross-owner access surfaces as NotFound, never Forbidden.
	_, err := m.FindByID(ctx, "owner-b", l.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = m.Update(ctx, "owner-b", l.ID, domain.ListingUpdate{Title: "stolen"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = m.Delete(ctx, "owner-b", l.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	others, err := m.FindByOwner(ctx, "owner-b")
	require.NoError(t, err)
	assert.Empty(t, others)

	results, err := m.Search(ctx, "owner-b", "tesla")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMirrorPartialUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMirrorRepository()

	l := newListing("owner-a")
	require.NoError(t, m.Create(ctx, l))

	upd := domain.ListingUpdate{Title: "2024 Tesla Model S Plaid"}
	first, err := m.Update(ctx, "owner-a", l.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, "2024 Tesla Model S Plaid", first.Title)
	assert.Equal(t, l.Description, first.Description, "absent fields untouched")
	assert.Equal(t, l.Images, first.Images, "nil images leaves the sequence unchanged")
	assert.Equal(t, l.Tags, first.Tags)

	// Idempotence on identical input: field values converge.
	second, err := m.Update(ctx, "owner-a", l.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Images, second.Images)
	assert.Equal(t, first.Tags, second.Tags)

	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
	assert.Equal(t, l.CreatedAt, second.CreatedAt, "createdAt immutable")
}

func TestMirrorUpdateRejectsBadCarType(t *testing.T) {
	ctx := context.Background()
	m := NewMirrorRepository()

	l := newListing("owner-a")
	require.NoError(t, m.Create(ctx, l))

	_, err := m.Update(ctx, "owner-a", l.ID, domain.ListingUpdate{CarType: "Hovercraft"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestMirrorDeleteThenOperations(t *testing.T) {
	ctx := context.Background()
	m := NewMirrorRepository()

	l := newListing("owner-a")
	require.NoError(t, m.Create(ctx, l))
	require.NoError(t, m.Delete(ctx, "owner-a", l.ID))

	_, err := m.FindByID(ctx, "owner-a", l.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = m.Update(ctx, "owner-a", l.ID, domain.ListingUpdate{Title: "ghost"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = m.Delete(ctx, "owner-a", l.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMirrorSearch(t *testing.T) {
	ctx := context.Background()
	m := NewMirrorRepository()

	require.NoError(t, m.Create(ctx, newListing("owner-a")))
	truck := &domain.Listing{
		OwnerID:     "owner-a",
		Title:       "Ford F-150",
		Description: "Workhorse pickup.",
		CarType:     domain.CarTypeTruck,
		Company:     "Ford",
		Tags:        []string{"pickup", "towing"},
	}
	require.NoError(t, m.Create(ctx, truck))

	// Case-insensitive substring over title.
	results, err := m.Search(ctx, "owner-a", "TESLA")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2023 Tesla Model S", results[0].Title)

	// Tags are indexed too.
	results, err = m.Search(ctx, "owner-a", "towing")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Ford F-150", results[0].Title)

	results, err = m.Search(ctx, "owner-a", "porsche")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMirrorReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMirrorRepository()

	l := newListing("owner-a")
	require.NoError(t, m.Create(ctx, l))

	got, err := m.FindByID(ctx, "owner-a", l.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Tags[0] = "mutated"

	fresh, err := m.FindByID(ctx, "owner-a", l.ID)
	require.NoError(t, err)
	assert.Equal(t, "2023 Tesla Model S", fresh.Title)
	assert.Equal(t, "electric", fresh.Tags[0])
}

func TestPassthroughUploader(t *testing.T) {
	url, err := PassthroughUploader{}.Upload(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", url)
}
