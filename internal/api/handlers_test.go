package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsync/internal/database"
)

type fakeStore struct {
	counts map[database.SupplierStatus]int
	parts  map[string]*database.SupplierPart
	run    *database.SyncRun
}

func (f *fakeStore) CountByStatus(context.Context) (map[database.SupplierStatus]int, error) {
	return f.counts, nil
}

func (f *fakeStore) GetSupplierPart(_ context.Context, offerID string) (*database.SupplierPart, error) {
	return f.parts[offerID], nil
}

func (f *fakeStore) FindByPartCode(_ context.Context, partCode string) ([]*database.SupplierPart, error) {
	var out []*database.SupplierPart
	for _, p := range f.parts {
		if p.PartCode == partCode {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) LastRun(context.Context, string) (*database.SyncRun, error) {
	return f.run, nil
}

func newTestRouter(store *fakeStore) http.Handler {
	logger := slog.New(slog.NewTextHandler(nopWriter{}, nil))
	return NewHandlers(store, logger).Router()
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeStore{
		counts: map[database.SupplierStatus]int{
			database.SupplierStatusResolved: 40,
			database.SupplierStatusFailed:   2,
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetPart(t *testing.T) {
	store := &fakeStore{parts: map[string]*database.SupplierPart{
		"A-100": {OfferID: "A-100", PartCode: "31311", Brand: "3RG", Qty: 12},
	}}
	router := newTestRouter(store)

	t.Run("known offer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/parts/A-100", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var part database.SupplierPart
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &part))
		assert.Equal(t, "3RG", part.Brand)
	})

	t.Run("unknown offer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/parts/NOPE", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFindPartsRequiresPcode(t *testing.T) {
	router := newTestRouter(&fakeStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/parts", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLastRunNotFound(t *testing.T) {
	router := newTestRouter(&fakeStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/supplier/last", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
