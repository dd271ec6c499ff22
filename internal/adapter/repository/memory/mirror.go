// Package memory implements the demo-mode mirror of the listing store: the
// same repository contract backed by an in-process ordered collection, so
// calling code needs no mode-specific branching beyond backend selection.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carhive/listing-service/internal/listing/domain"
)

// MirrorRepository holds listings in insertion order. Ids derive from the
// collection size and are unique only within the session, which is all demo
// mode needs. The mirror never reports store availability errors.
type MirrorRepository struct {
	mu       sync.Mutex
	listings []*domain.Listing
	created  int
}

func NewMirrorRepository() *MirrorRepository {
	return &MirrorRepository{}
}

// NewSeededMirror returns a mirror preloaded with the demo inventory shown
// to demo-mode sessions before they create anything of their own.
func NewSeededMirror() *MirrorRepository {
	now := time.Now().UTC()
	m := &MirrorRepository{created: 2}
	m.listings = []*domain.Listing{
		{
			ID:          "demo-1",
			OwnerID:     domain.DemoOwner,
			Title:       "2023 Tesla Model S",
			Description: "Luxury electric sedan with advanced autopilot features and long range battery.",
			Images:      []string{"https://images.unsplash.com/photo-1617788138017-80ad40651399?auto=format&fit=crop&q=80&w=1200"},
			CarType:     domain.CarTypeElectric,
			Company:     "Tesla",
			Tags:        []string{"electric", "luxury", "autopilot"},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "demo-2",
			OwnerID:     domain.DemoOwner,
			Title:       "2023 Porsche 911 GT3",
			Description: "High-performance sports car with precision handling and racing heritage.",
			Images:      []string{"https://images.unsplash.com/photo-1614162692292-7ac56d7f7f1e?auto=format&fit=crop&q=80&w=1200"},
			CarType:     domain.CarTypeSports,
			Company:     "Porsche",
			Tags:        []string{"sports", "performance", "luxury"},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	return m
}

func (m *MirrorRepository) Create(_ context.Context, listing *domain.Listing) error {
	if err := listing.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	m.created++
	listing.ID = fmt.Sprintf("demo-%d", m.created)
	listing.CreatedAt = now
	listing.UpdatedAt = now
	m.listings = append(m.listings, clone(listing))
	return nil
}

func (m *MirrorRepository) FindByID(_ context.Context, ownerID, id string) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.locate(ownerID, id)
	if l == nil {
		return nil, domain.ErrNotFound
	}
	return clone(l), nil
}

func (m *MirrorRepository) FindByOwner(_ context.Context, ownerID string) ([]*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		if l.OwnerID == ownerID {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

func (m *MirrorRepository) Update(_ context.Context, ownerID, id string, upd domain.ListingUpdate) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.locate(ownerID, id)
	if l == nil {
		return nil, domain.ErrNotFound
	}
	if upd.CarType != "" && !upd.CarType.Valid() {
		return nil, fmt.Errorf("%w: unknown car type %q", domain.ErrValidation, upd.CarType)
	}

	if upd.Title != "" {
		l.Title = upd.Title
	}
	if upd.Description != "" {
		l.Description = upd.Description
	}
	if upd.CarType != "" {
		l.CarType = upd.CarType
	}
	if upd.Company != "" {
		l.Company = upd.Company
	}
	if upd.Tags != nil {
		l.Tags = append([]string(nil), upd.Tags...)
	}
	if upd.Images != nil {
		l.Images = append([]string(nil), upd.Images...)
	}
	l.UpdatedAt = time.Now().UTC()
	return clone(l), nil
}

func (m *MirrorRepository) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, l := range m.listings {
		if l.ID == id && l.OwnerID == ownerID {
			m.listings = append(m.listings[:i], m.listings[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Search matches by case-insensitive substring over the concatenation of
// title, description and joined tags.
func (m *MirrorRepository) Search(_ context.Context, ownerID, query string) ([]*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	needle := strings.ToLower(query)
	out := make([]*domain.Listing, 0)
	for _, l := range m.listings {
		if l.OwnerID != ownerID {
			continue
		}
		haystack := strings.ToLower(l.Title + " " + l.Description + " " + strings.Join(l.Tags, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

func (m *MirrorRepository) locate(ownerID, id string) *domain.Listing {
	for _, l := range m.listings {
		if l.ID == id && l.OwnerID == ownerID {
			return l
		}
	}
	return nil
}

func clone(l *domain.Listing) *domain.Listing {
	c := *l
	c.Images = append([]string(nil), l.Images...)
	c.Tags = append([]string(nil), l.Tags...)
	return &c
}

// PassthroughUploader is the demo-mode image storage: payloads are stored
// exactly as submitted and no network call is ever made, so demo sessions
// cannot observe an upload failure.
type PassthroughUploader struct{}

func (PassthroughUploader) Upload(_ context.Context, payload string) (string, error) {
	return payload, nil
}
