package domain

import (
	"fmt"
	"strings"
	"time"
)

// DemoOwner is the fixed owner identifier used by demo-mode sessions.
const DemoOwner = "demo-user"

type CarType string

const (
	CarTypeSedan    CarType = "Sedan"
	CarTypeSUV      CarType = "SUV"
	CarTypeSports   CarType = "Sports"
	CarTypeLuxury   CarType = "Luxury"
	CarTypeElectric CarType = "Electric"
	CarTypeHybrid   CarType = "Hybrid"
	CarTypeTruck    CarType = "Truck"
	CarTypeVan      CarType = "Van"
)

var carTypes = map[CarType]struct{}{
	CarTypeSedan:    {},
	CarTypeSUV:      {},
	CarTypeSports:   {},
	CarTypeLuxury:   {},
	CarTypeElectric: {},
	CarTypeHybrid:   {},
	CarTypeTruck:    {},
	CarTypeVan:      {},
}

func (t CarType) Valid() bool {
	_, ok := carTypes[t]
	return ok
}

// Listing is a single vehicle inventory record. OwnerID is fixed at creation
// and every store operation is scoped by it.
type Listing struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Images      []string // materialized URLs only
	CarType     CarType
	Company     string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the invariants a listing must satisfy before it is written.
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(l.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if strings.TrimSpace(l.Company) == "" {
		return fmt.Errorf("%w: company is required", ErrValidation)
	}
	if !l.CarType.Valid() {
		return fmt.Errorf("%w: unknown car type %q", ErrValidation, l.CarType)
	}
	return nil
}

// ImageInput is a tagged variant for an image submitted on create/update:
// either a URL that is already stored, or a pending payload that still has
// to be materialized before persistence.
type ImageInput struct {
	url     string
	payload string
}

func StoredImage(url string) ImageInput {
	return ImageInput{url: url}
}

func PendingImage(payload string) ImageInput {
	return ImageInput{payload: payload}
}

func (i ImageInput) Pending() bool { return i.payload != "" }

// URL returns the stored URL; empty for pending images.
func (i ImageInput) URL() string { return i.url }

// Payload returns the raw encoded payload; empty for stored images.
func (i ImageInput) Payload() string { return i.payload }

// ListingUpdate is a partial update. Empty strings and nil slices mean the
// field was not supplied and must be left untouched. Images carries
// materialized URLs only.
type ListingUpdate struct {
	Title       string
	Description string
	CarType     CarType
	Company     string
	Tags        []string
	Images      []string
}

// NormalizeTags trims every token and drops empties and duplicates while
// preserving first-seen order. Tokens may themselves carry comma-separated
// values, as submitted by the client form.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		for _, tag := range strings.Split(raw, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
