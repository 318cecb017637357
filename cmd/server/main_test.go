package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/waitlist-api/internal/config"
	"github.com/ignite/waitlist-api/internal/repository"
	"github.com/ignite/waitlist-api/internal/repository/memory"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

func TestOpenStore_NoURIFallsBackToUnavailable(t *testing.T) {
	store, conn := openStore(context.Background(), config.DatabaseConfig{})

	assert.Nil(t, conn)
	_, err := store.ListAll(context.Background())
	assert.ErrorIs(t, err, subscription.ErrUnavailable)
	assert.ErrorContains(t, err, repository.ErrNoDatabase.Error())
}

func TestOpenStore_Memory(t *testing.T) {
	store, conn := openStore(context.Background(), config.DatabaseConfig{URI: "memory://"})

	require.NotNil(t, conn)
	assert.IsType(t, &memory.SubscriberRepo{}, store)
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{URI: "memory://"},
		Notifier: config.NotifierConfig{Provider: "log", TimeoutSeconds: 1},
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, l) }()

	url := fmt.Sprintf("http://%s/", l.Addr().String())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_UnknownNotifierFails(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{URI: "memory://"},
		Notifier: config.NotifierConfig{Provider: "carrier-pigeon"},
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = run(context.Background(), cfg, l)
	require.Error(t, err)
	assert.False(t, errors.Is(err, http.ErrServerClosed))
}
