package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/carhive/listing-service/internal/adapter/repository/cache"
	"github.com/carhive/listing-service/internal/listing/domain"
	"github.com/carhive/listing-service/internal/listing/usecase"
	"github.com/carhive/listing-service/internal/platform/logger"
)

var tracer = otel.Tracer("listing-service/httpapi")

// Request bodies can carry inline base64 images.
const maxBodyBytes = 50 << 20

// Handler serves the six listing operations. The backend is selected once
// per request from the resolved identity: demo sessions run against the
// in-memory mirror, everything else against the live store.
type Handler struct {
	live   *usecase.ListingUsecase
	demo   *usecase.ListingUsecase
	cache  *cache.ListingCache // optional, live path only
	logger *logger.Logger
}

func NewHandler(live, demo *usecase.ListingUsecase, c *cache.ListingCache, log *logger.Logger) *Handler {
	return &Handler{live: live, demo: demo, cache: c, logger: log}
}

func (h *Handler) backendFor(id Identity) *usecase.ListingUsecase {
	if id.Demo {
		return h.demo
	}
	return h.live
}

// ---- wire payloads ----

type listingResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	CarType     string   `json:"carType"`
	Company     string   `json:"company"`
	Tags        []string `json:"tags"`
	OwnerID     string   `json:"userId"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func toListingResponse(l *domain.Listing) *listingResponse {
	if l == nil {
		return nil
	}
	images := l.Images
	if images == nil {
		images = []string{}
	}
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return &listingResponse{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Images:      images,
		CarType:     string(l.CarType),
		Company:     l.Company,
		Tags:        tags,
		OwnerID:     l.OwnerID,
		CreatedAt:   l.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   l.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toListingResponses(listings []*domain.Listing) []*listingResponse {
	out := make([]*listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	return out
}

// tagList accepts either a JSON array of tokens or a single raw string of
// comma-separated tags, as submitted by the client form.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		*t = tagList{raw}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*t = tagList(list)
	return nil
}

type listingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	CarType     string   `json:"carType"`
	Company     string   `json:"company"`
	Tags        tagList  `json:"tags"`
}

// decodeImages turns wire strings into the tagged image variant. This is
// the only place the "data:" prefix is inspected; downstream code deals in
// Stored/Pending values.
func decodeImages(images []string) []domain.ImageInput {
	if images == nil {
		return nil
	}
	out := make([]domain.ImageInput, 0, len(images))
	for _, img := range images {
		if strings.HasPrefix(img, "data:") {
			out = append(out, domain.PendingImage(img))
		} else {
			out = append(out, domain.StoredImage(img))
		}
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the domain error taxonomy onto HTTP statuses, keeping
// client-caused errors (4xx) distinguishable from systemic faults.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "unauthenticated", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: "Car not found"})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "validation_failed", Message: err.Error()})
	case errors.Is(err, domain.ErrImageUpload):
		writeJSON(w, http.StatusBadGateway, errorResponse{Code: "image_upload_failed", Message: err.Error()})
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: "store_unavailable", Message: "Try again later"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal", Message: "Internal server error"})
	}
}

// ---- operations ----

func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	ctx, span := tracer.Start(r.Context(), "Handler.ListListings", oteltrace.WithAttributes(
		attribute.String("owner_id", identity.OwnerID)))
	defer span.End()

	listings, err := h.backendFor(identity).List(ctx, identity.OwnerID)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponses(listings))
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	id := mux.Vars(r)["id"]
	ctx, span := tracer.Start(r.Context(), "Handler.GetListing", oteltrace.WithAttributes(
		attribute.String("owner_id", identity.OwnerID),
		attribute.String("listing_id", id)))
	defer span.End()

	if !identity.Demo && h.cache != nil {
		if cached, err := h.cache.Get(ctx, identity.OwnerID, id); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, toListingResponse(cached))
			return
		}
	}

	listing, err := h.backendFor(identity).Get(ctx, identity.OwnerID, id)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	h.cacheSet(ctx, identity, listing)
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	ctx, span := tracer.Start(r.Context(), "Handler.CreateListing", oteltrace.WithAttributes(
		attribute.String("owner_id", identity.OwnerID)))
	defer span.End()

	var req listingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.backendFor(identity).Create(ctx, identity.OwnerID, usecase.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Images:      decodeImages(req.Images),
		CarType:     domain.CarType(req.CarType),
		Company:     req.Company,
		Tags:        []string(req.Tags),
	})
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}
	span.SetAttributes(attribute.String("listing_id", listing.ID))

	h.cacheSet(ctx, identity, listing)
	writeJSON(w, http.StatusCreated, toListingResponse(listing))
}

func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	id := mux.Vars(r)["id"]
	ctx, span := tracer.Start(r.Context(), "Handler.UpdateListing", oteltrace.WithAttributes(
		attribute.String("owner_id", identity.OwnerID),
		attribute.String("listing_id", id)))
	defer span.End()

	var req listingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.backendFor(identity).Update(ctx, identity.OwnerID, id, usecase.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Images:      decodeImages(req.Images),
		CarType:     domain.CarType(req.CarType),
		Company:     req.Company,
		Tags:        []string(req.Tags),
	})
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	h.cacheSet(ctx, identity, listing)
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	id := mux.Vars(r)["id"]
	ctx, span := tracer.Start(r.Context(), "Handler.DeleteListing", oteltrace.WithAttributes(
		attribute.String("owner_id", identity.OwnerID),
		attribute.String("listing_id", id)))
	defer span.End()

	if err := h.backendFor(identity).Delete(ctx, identity.OwnerID, id); err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	if !identity.Demo && h.cache != nil {
		if err := h.cache.Delete(ctx, identity.OwnerID, id); err != nil {
			h.logger.Warn("Handler.DeleteListing: cache invalidation failed", "listing_id", id, "error", err.Error())
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Car deleted successfully"})
}

func (h *Handler) SearchListings(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, fmt.Errorf("%w: query parameter q is required", domain.ErrValidation))
		return
	}
	ctx, span := tracer.Start(r.Context(), "Handler.SearchListings", oteltrace.WithAttributes(
		attribute.String("owner_id", identity.OwnerID),
		attribute.String("query", query)))
	defer span.End()

	listings, err := h.backendFor(identity).Search(ctx, identity.OwnerID, query)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponses(listings))
}

func (h *Handler) cacheSet(ctx context.Context, identity Identity, listing *domain.Listing) {
	if identity.Demo || h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, listing); err != nil {
		h.logger.Warn("Handler: cache set failed", "listing_id", listing.ID, "error", err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrValidation, err)
	}
	return nil
}
