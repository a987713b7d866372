package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/textileio/go-autopay/internal/autopay"
)

func TestConfiguredRouter(t *testing.T) {
	t.Parallel()

	router, err := ConfiguredRouter(&autopayFake{}, 100, 1, time.Minute)
	require.NoError(t, err)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	res, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, res.Body.Close())

	res, err = http.Get(server.URL + "/address")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, res.Header.Get("Trace-ID"))
	require.NoError(t, res.Body.Close())

	// transfers only accept POST
	res, err = http.Get(server.URL + "/transfer")
	require.NoError(t, err)
	require.Contains(t, []int{http.StatusMethodNotAllowed, http.StatusNotFound}, res.StatusCode)
	require.NoError(t, res.Body.Close())

	// the periodic endpoint has its own limit of 1 request per interval
	res, err = http.Post(server.URL+"/transfer/periodic", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, res.StatusCode)
	require.NoError(t, res.Body.Close())

	res, err = http.Post(server.URL+"/transfer/periodic", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	require.NoError(t, res.Body.Close())
}

type autopayFake struct{}

func (f *autopayFake) Address(_ context.Context) (string, error) {
	return "0x2a4B1E3cC4b0e3D4e5f6A7b8c9D0e1F2a3B4c5D6", nil
}

func (f *autopayFake) Transfer(_ context.Context) (string, error) {
	return "Transaction{}", nil
}

func (f *autopayFake) TransferPeriodically(_ context.Context) (string, error) {
	return "", autopay.ErrTransferNotDue
}

func (f *autopayFake) Reconcile(_ context.Context, _ string) (string, error) {
	return "Transaction{}", nil
}

func (f *autopayFake) Status(_ context.Context) (autopay.Status, error) {
	return autopay.Status{}, nil
}
