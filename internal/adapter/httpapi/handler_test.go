package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carhive/listing-service/internal/adapter/repository/memory"
	"github.com/carhive/listing-service/internal/listing/usecase"
)

// fixture serves the API with both backends mirror-backed: the live path
// gets a fresh unseeded mirror, the demo path the seeded one.
func fixture(t *testing.T) http.Handler {
	t.Helper()
	log := testLogger()
	live := usecase.NewListingUsecase(memory.NewMirrorRepository(), memory.PassthroughUploader{}, log)
	demo := usecase.NewListingUsecase(memory.NewSeededMirror(), memory.PassthroughUploader{}, log)
	handler := NewHandler(live, demo, nil, log)
	return NewRouter(handler, NewAuthenticator(testSecret, log), log)
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeListing(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeListings(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func teslaPayload() map[string]interface{} {
	return map[string]interface{}{
		"title":       "2023 Tesla Model S",
		"description": "Luxury electric sedan with long range battery.",
		"images":      []string{"data:image/png;base64,aGVsbG8="},
		"carType":     "Electric",
		"company":     "Tesla",
		"tags":        "electric, luxury",
	}
}

func TestMissingAuthorizationIsRejected(t *testing.T) {
	h := fixture(t)

	for _, path := range []string{"/api/cars", "/api/cars/search?q=tesla", "/api/cars/demo-1"} {
		rec := doRequest(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "unauthenticated", decodeError(t, rec).Code, path)
	}
}

func TestHealthIsPublic(t *testing.T) {
	h := fixture(t)
	rec := doRequest(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndFetchListing(t *testing.T) {
	h := fixture(t)
	token := signToken(t, testSecret, "user-a")

	rec := doRequest(t, h, http.MethodPost, "/api/cars", token, teslaPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeListing(t, rec)
	assert.Equal(t, "user-a", created["userId"])
	assert.Equal(t, []interface{}{"electric", "luxury"}, created["tags"], "raw tag string stored as tokens")
	assert.Equal(t, created["createdAt"], created["updatedAt"])

	id := created["id"].(string)
	rec = doRequest(t, h, http.MethodGet, "/api/cars/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created["title"], decodeListing(t, rec)["title"])

	rec = doRequest(t, h, http.MethodGet, "/api/cars", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeListings(t, rec), 1)
}

func TestCreateListingValidationFailure(t *testing.T) {
	h := fixture(t)
	token := signToken(t, testSecret, "user-a")

	payload := teslaPayload()
	payload["carType"] = "Motorcycle"
	rec := doRequest(t, h, http.MethodPost, "/api/cars", token, payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decodeError(t, rec).Code)

	payload = teslaPayload()
	payload["title"] = ""
	rec = doRequest(t, h, http.MethodPost, "/api/cars", token, payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchListings(t *testing.T) {
	h := fixture(t)
	token := signToken(t, testSecret, "user-a")

	rec := doRequest(t, h, http.MethodPost, "/api/cars", token, teslaPayload())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/cars/search?q=tesla", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeListings(t, rec), 1)

	rec = doRequest(t, h, http.MethodGet, "/api/cars/search?q=porsche", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeListings(t, rec))

	rec = doRequest(t, h, http.MethodGet, "/api/cars/search", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing q is a validation failure")
}

func TestSearchRouteDoesNotShadowIDs(t *testing.T) {
	h := fixture(t)

	// Under the demo owner, "search" with a query hits the search handler,
	// while an id-shaped path segment still resolves a listing.
	rec := doRequest(t, h, http.MethodGet, "/api/cars/search?q=porsche", DemoToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeListings(t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, "2023 Porsche 911 GT3", results[0]["title"])

	rec = doRequest(t, h, http.MethodGet, "/api/cars/demo-1", DemoToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2023 Tesla Model S", decodeListing(t, rec)["title"])
}

func TestOwnershipScoping(t *testing.T) {
	h := fixture(t)
	tokenA := signToken(t, testSecret, "user-a")
	tokenB := signToken(t, testSecret, "user-b")

	rec := doRequest(t, h, http.MethodPost, "/api/cars", tokenA, teslaPayload())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeListing(t, rec)["id"].(string)

	// Owner B sees nothing: not listed, not gettable, not searchable.
	rec = doRequest(t, h, http.MethodGet, "/api/cars", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeListings(t, rec))

	rec = doRequest(t, h, http.MethodGet, "/api/cars/"+id, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "cross-owner access is NotFound, not Forbidden")

	rec = doRequest(t, h, http.MethodGet, "/api/cars/search?q=tesla", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeListings(t, rec))

	rec = doRequest(t, h, http.MethodDelete, "/api/cars/"+id, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateListing(t *testing.T) {
	h := fixture(t)
	token := signToken(t, testSecret, "user-a")

	rec := doRequest(t, h, http.MethodPost, "/api/cars", token, teslaPayload())
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeListing(t, rec)
	id := created["id"].(string)

	// Partial update: only the title changes, images stay untouched.
	rec = doRequest(t, h, http.MethodPut, "/api/cars/"+id, token, map[string]interface{}{
		"title": "2024 Tesla Model S Plaid",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeListing(t, rec)
	assert.Equal(t, "2024 Tesla Model S Plaid", updated["title"])
	assert.Equal(t, created["images"], updated["images"])
	assert.Equal(t, created["createdAt"], updated["createdAt"])

	rec = doRequest(t, h, http.MethodPut, "/api/cars/missing", token, map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteListing(t *testing.T) {
	h := fixture(t)
	token := signToken(t, testSecret, "user-a")

	rec := doRequest(t, h, http.MethodPost, "/api/cars", token, teslaPayload())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeListing(t, rec)["id"].(string)

	rec = doRequest(t, h, http.MethodDelete, "/api/cars/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/cars/" + id},
		{http.MethodPut, "/api/cars/" + id},
		{http.MethodDelete, "/api/cars/" + id},
	} {
		var body interface{}
		if probe.method == http.MethodPut {
			body = map[string]interface{}{"title": "ghost"}
		}
		rec := doRequest(t, h, probe.method, probe.path, token, body)
		assert.Equal(t, http.StatusNotFound, rec.Code, fmt.Sprintf("%s %s", probe.method, probe.path))
	}
}

// Demo and live sequences must produce the same observable shapes.
func TestDemoModeMatchesLiveShapes(t *testing.T) {
	h := fixture(t)
	liveToken := signToken(t, testSecret, "user-a")

	for _, token := range []string{DemoToken, liveToken} {
		rec := doRequest(t, h, http.MethodPost, "/api/cars", token, teslaPayload())
		require.Equal(t, http.StatusCreated, rec.Code, token)
		created := decodeListing(t, rec)
		id := created["id"].(string)

		rec = doRequest(t, h, http.MethodGet, "/api/cars", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, h, http.MethodPut, "/api/cars/"+id, token, map[string]interface{}{"company": "Tesla Inc."})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Tesla Inc.", decodeListing(t, rec)["company"])

		rec = doRequest(t, h, http.MethodDelete, "/api/cars/"+id, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, h, http.MethodGet, "/api/cars/"+id, token, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Code)

		payload := teslaPayload()
		payload["carType"] = "Motorcycle"
		rec = doRequest(t, h, http.MethodPost, "/api/cars", token, payload)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_failed", decodeError(t, rec).Code)
	}
}

func TestTagListAcceptsArrayAndString(t *testing.T) {
	var fromArray listingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"tags":["a","b"]}`), &fromArray))
	assert.Equal(t, tagList{"a", "b"}, fromArray.Tags)

	var fromString listingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"tags":"a, b"}`), &fromString))
	assert.Equal(t, tagList{"a, b"}, fromString.Tags)

	var absent listingRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.Nil(t, absent.Tags)
}
