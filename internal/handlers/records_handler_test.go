package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"sponsor-backend/internal/models"
)

type fakeSponsorshipRepo struct {
	rows map[string]*models.SponsorshipRecord
}

func newFakeSponsorshipRepo() *fakeSponsorshipRepo {
	return &fakeSponsorshipRepo{rows: map[string]*models.SponsorshipRecord{}}
}

func (f *fakeSponsorshipRepo) Create(_ context.Context, record *models.SponsorshipRecord) error {
	f.rows[record.OperationHash] = record
	return nil
}

func (f *fakeSponsorshipRepo) Update(_ context.Context, record *models.SponsorshipRecord) error {
	f.rows[record.OperationHash] = record
	return nil
}

func (f *fakeSponsorshipRepo) GetByOperationHash(_ context.Context, opHash string) (*models.SponsorshipRecord, error) {
	return f.rows[opHash], nil
}

func (f *fakeSponsorshipRepo) FindByRecipient(_ context.Context, recipient string, page, pageSize int) ([]*models.SponsorshipRecord, int64, error) {
	var out []*models.SponsorshipRecord
	for _, r := range f.rows {
		if r.Recipient == recipient {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSponsorshipRepo) FindRecent(_ context.Context, limit int) ([]*models.SponsorshipRecord, error) {
	var out []*models.SponsorshipRecord
	for _, r := range f.rows {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSponsorshipRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeSponsorshipRepo) CountReverted(_ context.Context) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.OperationReverted {
			n++
		}
	}
	return n, nil
}

const testOpHash = "0x1122000000000000000000000000000000000000000000000000000000000abb"

func recordsRouter(repo *fakeSponsorshipRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRecordsHandler(repo)
	r := gin.New()
	r.GET("/records/op/:opHash", h.GetRecordHandler)
	r.GET("/records/recipient/:address", h.ListByRecipientHandler)
	r.GET("/records/stats", h.StatsHandler)
	return r
}

func TestGetRecordByOperationHash(t *testing.T) {
	repo := newFakeSponsorshipRepo()
	repo.rows[testOpHash] = &models.SponsorshipRecord{
		ID:            "rec-1",
		OperationHash: testOpHash,
		Recipient:     "0x1111111111111111111111111111111111111111",
		Refund:        "300",
	}
	r := recordsRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/op/"+testOpHash, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool                      `json:"success"`
		Record  *models.SponsorshipRecord `json:"record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "300", body.Record.Refund)
}

func TestGetRecordNotFound(t *testing.T) {
	r := recordsRouter(newFakeSponsorshipRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/op/"+testOpHash, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecordBadHash(t *testing.T) {
	r := recordsRouter(newFakeSponsorshipRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/op/0x1234", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListByRecipientLowercasesAddress(t *testing.T) {
	recipient := "0x1111111111111111111111111111111111111111"
	repo := newFakeSponsorshipRepo()
	repo.rows[testOpHash] = &models.SponsorshipRecord{
		OperationHash: testOpHash,
		Recipient:     recipient,
	}
	r := recordsRouter(repo)

	// mixed-case path parameter must still match the stored lowercase form
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/recipient/0x"+strings.ToUpper(recipient[2:]), nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool  `json:"success"`
		Total   int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, int64(1), body.Total)
}

func TestStats(t *testing.T) {
	repo := newFakeSponsorshipRepo()
	repo.rows["a"] = &models.SponsorshipRecord{OperationHash: "a", Settled: true}
	repo.rows["b"] = &models.SponsorshipRecord{OperationHash: "b", Settled: true, OperationReverted: true}
	repo.rows["c"] = &models.SponsorshipRecord{OperationHash: "c", Settled: true, OperationReverted: true}
	r := recordsRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/stats", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Settled  int64 `json:"settled"`
		Reverted int64 `json:"reverted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, int64(3), body.Settled)
	require.Equal(t, int64(2), body.Reverted)
}
