package stork

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stork_verifier/faults"
)

func TestFetchSignedPrices(t *testing.T) {
	now := time.Now().Unix()
	var gotAuth, gotOrigin string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotOrigin = r.Header.Get("Origin")
		assert.Equal(t, pricesPath, r.URL.Path)

		fmt.Fprintf(w, `{"data":{
			"BTCUSD":{"price":"65432100000000000000000","timestamped_signature":{"msg_hash":"0xaaa","timestamp":%d}},
			"ETHUSD":{"price":3500.25,"timestamped_signature":{"msg_hash":"0xbbb","timestamp":"%d"}},
			"NOHASH":{"price":"1","timestamped_signature":{"timestamp":%d}},
			"BADTS":{"price":"1","timestamped_signature":{"msg_hash":"0xccc","timestamp":"zzz"}}
		}}`, now, now, now)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL}, nil)
	observations, err := c.FetchSignedPrices(context.Background(), "token-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "chrome-extension://knnliglhgkmlblppdejchidfihjnockl", gotOrigin)

	require.Len(t, observations, 2)
	byAsset := map[string]string{}
	for _, obs := range observations {
		byAsset[obs.Asset] = obs.Price
		assert.Equal(t, now, obs.ObservedAt.Unix())
	}
	assert.Equal(t, "65432.10000000", byAsset["BTCUSD"])
	assert.Equal(t, "3500.25", byAsset["ETHUSD"])
}

func TestFetchSignedPricesUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL}, nil)
	_, err := c.FetchSignedPrices(context.Background(), "stale")
	assert.ErrorIs(t, err, faults.ErrAuth)
}

func TestFetchSignedPricesMissingData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"ok"}`)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL}, nil)
	_, err := c.FetchSignedPrices(context.Background(), "token")
	assert.ErrorIs(t, err, faults.ErrData)
}

func TestFetchSignedPricesConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	c := NewClient(Options{BaseURL: server.URL}, nil)
	_, err := c.FetchSignedPrices(context.Background(), "token")
	assert.ErrorIs(t, err, faults.ErrConnection)
}
