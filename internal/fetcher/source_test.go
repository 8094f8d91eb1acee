package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/resilience"
)

func TestSources_Rows_CSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Company,Number\nAcme,555-0100\n")) //nolint:errcheck
	}))
	defer srv.Close()

	s := NewSources(map[string]string{"Kavin": srv.URL + "/kavin"}, newTestFetcher(), time.Second)
	rows, err := s.Rows(context.Background(), "Kavin")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["company"])
}

func TestSources_Rows_XLSX(t *testing.T) {
	data := createTestXLSX(t, map[string][][]string{"Sheet1": {{"Company"}, {"Acme"}}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data) //nolint:errcheck
	}))
	defer srv.Close()

	s := NewSources(map[string]string{"DB": srv.URL + "/master.xlsx"}, newTestFetcher(), 0)
	rows, err := s.Rows(context.Background(), "DB")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["company"])
}

func TestSources_Rows_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSources(map[string]string{"Kavin": srv.URL}, newTestFetcher(), time.Second)
	_, err := s.Rows(context.Background(), "Kavin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable))

	var srcErr *model.SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, http.StatusForbidden, srcErr.StatusCode)
	assert.Equal(t, "Kavin", srcErr.Source)
}

func TestSources_Rows_NotConfigured(t *testing.T) {
	s := NewSources(map[string]string{"Kavin": ""}, newTestFetcher(), 0)
	_, ok := s.URL("Kavin")
	assert.False(t, ok)

	_, err := s.Rows(context.Background(), "Kavin")
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable))
}

func TestSources_URL_CaseInsensitive(t *testing.T) {
	s := NewSources(map[string]string{"kavin": "https://x.example"}, newTestFetcher(), 0)
	u, ok := s.URL("Kavin")
	assert.True(t, ok)
	assert.Equal(t, "https://x.example", u)
}

func TestSources_Rows_BreakerShortCircuits(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breakers := resilience.NewBreakers(resilience.NewBreakerConfig(2, time.Minute))
	s := NewSources(map[string]string{"Kavin": srv.URL}, newTestFetcher(), time.Second, WithBreakers(breakers))

	for i := 0; i < 2; i++ {
		_, err := s.Rows(context.Background(), "Kavin")
		require.Error(t, err)
	}
	assert.EqualValues(t, 2, hits.Load())

	_, err := s.Rows(context.Background(), "Kavin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable))
	assert.True(t, errors.Is(err, resilience.ErrOpen))
	assert.EqualValues(t, 2, hits.Load())
	assert.Equal(t, resilience.Open, breakers.States()["kavin"])
}
