package aoaranks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRanks_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req RankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "berufsunfaehigkeit", req.CategoryIdent)
		require.Len(t, req.Consultants, 1)

		w.Header().Set("X-Request-Id", "req-123")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"allocated_consultants":[3,1,2]}`))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).RequestRanks(context.Background(), &RankRequest{
		CategoryIdent: "berufsunfaehigkeit",
		Consultants:   []ConsultantMatrix{{ConsultantID: 1}},
	})
	require.NoError(t, err)

	assert.True(t, result.Successful())
	assert.Equal(t, []int64{3, 1, 2}, result.AoaRanks)
	assert.Equal(t, "req-123", result.RequestUUID)
	assert.Empty(t, result.Errors)
}

func TestRequestRanks_CreatedWithErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Request-Id", "req-456")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"code":500,"description":"model not trained","name":"InternalError"}`))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).RequestRanks(context.Background(), &RankRequest{})
	require.NoError(t, err)

	assert.False(t, result.Successful())
	assert.Empty(t, result.AoaRanks)
	assert.Equal(t, "req-456", result.RequestUUID, "request id survives a body-level error")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "model not trained")
}

func TestRequestRanks_NonCreatedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Request-Id", "req-789")
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).RequestRanks(context.Background(), &RankRequest{})
	require.NoError(t, err)

	assert.False(t, result.Successful())
	assert.Empty(t, result.RequestUUID, "no request id without a 201")
	assert.Equal(t, http.StatusUnprocessableEntity, result.StatusCode)
}

func TestRequestRanks_HooksRunOnEveryOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	var seen []*RankResult
	hook := func(r *RankResult) { seen = append(seen, r) }

	_, err := NewClient(srv.URL).RequestRanks(context.Background(), &RankRequest{}, hook)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, http.StatusBadRequest, seen[0].StatusCode)

	// Transport failure: the hook still fires.
	srv.Close()
	_, err = NewClient(srv.URL).RequestRanks(context.Background(), &RankRequest{}, hook)
	require.Error(t, err)
	assert.Len(t, seen, 2)
}

func TestRequestRanks_RetriesTransientStatus(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("X-Request-Id", "req-retry")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"allocated_consultants":[5]}`))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).RequestRanks(context.Background(), &RankRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, attempts)
	assert.True(t, result.Successful())
	assert.Equal(t, []int64{5}, result.AoaRanks)
}
