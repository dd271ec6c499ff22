package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/carhive/listing-service/internal/listing/domain"
	"github.com/carhive/listing-service/internal/platform/logger"
)

// EventPublisher broadcasts listing lifecycle events. Failures are logged,
// never surfaced to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// Mailer sends the optional listing-created notification.
type Mailer interface {
	SendListingCreatedEmail(to, title string) error
}

const (
	SubjectCreated = "car.created"
	SubjectUpdated = "car.updated"
	SubjectDeleted = "car.deleted"
)

// CreateInput carries the fields of a new listing. Images may mix stored
// URLs and pending payloads; pending ones are materialized before the
// record is written.
type CreateInput struct {
	Title       string
	Description string
	Images      []domain.ImageInput
	CarType     domain.CarType
	Company     string
	Tags        []string
}

// UpdateInput is a partial update. Empty strings mean "not supplied"; a nil
// Images or Tags slice leaves the stored sequence untouched.
type UpdateInput struct {
	Title       string
	Description string
	Images      []domain.ImageInput
	CarType     domain.CarType
	Company     string
	Tags        []string
}

// ListingUsecase orchestrates one request per call and is stateless between
// calls. Ownership is enforced on every operation through the repository's
// owner-scoped queries.
type ListingUsecase struct {
	repo        domain.ListingRepository
	storage     domain.ImageStorage
	publisher   EventPublisher
	mailer      Mailer
	notifyEmail string
	logger      *logger.Logger
}

func NewListingUsecase(repo domain.ListingRepository, storage domain.ImageStorage, log *logger.Logger) *ListingUsecase {
	return &ListingUsecase{
		repo:    repo,
		storage: storage,
		logger:  log,
	}
}

// WithPublisher enables lifecycle event publication.
func (uc *ListingUsecase) WithPublisher(p EventPublisher) *ListingUsecase {
	uc.publisher = p
	return uc
}

// WithMailer enables the listing-created notification email.
func (uc *ListingUsecase) WithMailer(m Mailer, notifyEmail string) *ListingUsecase {
	uc.mailer = m
	uc.notifyEmail = notifyEmail
	return uc
}

func (uc *ListingUsecase) List(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	return uc.repo.FindByOwner(ctx, ownerID)
}

func (uc *ListingUsecase) Get(ctx context.Context, ownerID, id string) (*domain.Listing, error) {
	return uc.repo.FindByID(ctx, ownerID, id)
}

func (uc *ListingUsecase) Create(ctx context.Context, ownerID string, in CreateInput) (*domain.Listing, error) {
	uc.logger.Info("ListingUsecase.Create: creating listing", "owner_id", ownerID, "title", in.Title)

	images, err := uc.resolveImages(ctx, in.Images)
	if err != nil {
		uc.logger.Error("ListingUsecase.Create: image materialization failed", "owner_id", ownerID, "error", err.Error())
		return nil, err
	}

	listing := &domain.Listing{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Images:      images,
		CarType:     in.CarType,
		Company:     in.Company,
		Tags:        domain.NormalizeTags(in.Tags),
	}
	if err := listing.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, listing); err != nil {
		uc.logger.Error("ListingUsecase.Create: store rejected listing", "owner_id", ownerID, "error", err.Error())
		return nil, err
	}

	uc.publish(ctx, SubjectCreated, listing)
	uc.notifyCreated(listing)

	uc.logger.Info("ListingUsecase.Create: successful", "listing_id", listing.ID, "owner_id", ownerID)
	return listing, nil
}

func (uc *ListingUsecase) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*domain.Listing, error) {
	uc.logger.Info("ListingUsecase.Update: updating listing", "listing_id", id, "owner_id", ownerID)

	if in.CarType != "" && !in.CarType.Valid() {
		return nil, fmt.Errorf("%w: unknown car type %q", domain.ErrValidation, in.CarType)
	}

	// Read-before-write: NotFound must short-circuit before any upload work.
	if _, err := uc.repo.FindByID(ctx, ownerID, id); err != nil {
		return nil, err
	}

	upd := domain.ListingUpdate{
		Title:       in.Title,
		Description: in.Description,
		CarType:     in.CarType,
		Company:     in.Company,
	}
	if in.Tags != nil {
		upd.Tags = domain.NormalizeTags(in.Tags)
	}
	if in.Images != nil {
		images, err := uc.resolveImages(ctx, in.Images)
		if err != nil {
			uc.logger.Error("ListingUsecase.Update: image materialization failed", "listing_id", id, "error", err.Error())
			return nil, err
		}
		upd.Images = images
	}

	listing, err := uc.repo.Update(ctx, ownerID, id, upd)
	if err != nil {
		uc.logger.Error("ListingUsecase.Update: store update failed", "listing_id", id, "error", err.Error())
		return nil, err
	}

	uc.publish(ctx, SubjectUpdated, listing)

	uc.logger.Info("ListingUsecase.Update: successful", "listing_id", listing.ID, "owner_id", ownerID)
	return listing, nil
}

func (uc *ListingUsecase) Delete(ctx context.Context, ownerID, id string) error {
	uc.logger.Info("ListingUsecase.Delete: deleting listing", "listing_id", id, "owner_id", ownerID)

	if err := uc.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, SubjectDeleted, map[string]string{"id": id, "owner_id": ownerID}); err != nil {
			uc.logger.Warn("ListingUsecase.Delete: event publish failed", "subject", SubjectDeleted, "error", err.Error())
		}
	}
	return nil
}

func (uc *ListingUsecase) Search(ctx context.Context, ownerID, query string) ([]*domain.Listing, error) {
	uc.logger.Debug("ListingUsecase.Search: searching listings", "owner_id", ownerID, "query", query)
	return uc.repo.Search(ctx, ownerID, query)
}

// resolveImages materializes every pending image concurrently. Stored URLs
// pass through byte-identical at their original position. Any single upload
// failure fails the whole operation and nothing is persisted.
func (uc *ListingUsecase) resolveImages(ctx context.Context, images []domain.ImageInput) ([]string, error) {
	urls := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		if !img.Pending() {
			urls[i] = img.URL()
			continue
		}
		i, img := i, img
		g.Go(func() error {
			url, err := uc.storage.Upload(gctx, img.Payload())
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrImageUpload, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (uc *ListingUsecase) publish(ctx context.Context, subject string, l *domain.Listing) {
	if uc.publisher == nil {
		return
	}
	payload := map[string]string{"id": l.ID, "owner_id": l.OwnerID, "title": l.Title}
	if err := uc.publisher.Publish(ctx, subject, payload); err != nil {
		uc.logger.Warn("ListingUsecase: event publish failed", "subject", subject, "listing_id", l.ID, "error", err.Error())
	}
}

func (uc *ListingUsecase) notifyCreated(l *domain.Listing) {
	if uc.mailer == nil || uc.notifyEmail == "" {
		return
	}
	title := l.Title
	go func() {
		if err := uc.mailer.SendListingCreatedEmail(uc.notifyEmail, title); err != nil {
			uc.logger.Warn("ListingUsecase: notification email failed", "error", err.Error())
		}
	}()
}
