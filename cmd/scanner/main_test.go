package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/connector"
	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/scanner"
	"solana-token-scanner/internal/sink"
)

func TestBuildConsumer_Defaults(t *testing.T) {
	cfg := config.Defaults()

	consumer, store, cleanup, err := buildConsumer(context.Background(), &cfg, logger.Nop(), nil)
	require.NoError(t, err)
	defer cleanup()

	chain, ok := consumer.(sink.Fanout)
	require.True(t, ok)
	assert.Len(t, chain, 2) // log + memory store
	require.NotNil(t, store)

	ev, err := domain.NewTokenEvent(domain.SourcePumpFun, domain.EventTypeNewToken, "Mint1", domain.Market{}, nil)
	require.NoError(t, err)
	assert.NoError(t, consumer.OnTokenEvent(context.Background(), ev))

	stored, err := store.GetByMint(context.Background(), "Mint1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestBuildConsumer_NoSinks(t *testing.T) {
	cfg := config.Defaults()
	cfg.Sink.LogEvents = false
	cfg.Sink.Store = config.StoreNone

	consumer, store, cleanup, err := buildConsumer(context.Background(), &cfg, logger.Nop(), nil)
	require.NoError(t, err)
	defer cleanup()

	assert.Empty(t, consumer.(sink.Fanout))
	assert.Nil(t, store)
}

func TestBuildStatus(t *testing.T) {
	cfg := config.Defaults()
	sup, err := scanner.NewFromConfig(&cfg, nil, connector.Deps{}, map[domain.Source]scanner.Factory{})
	require.NoError(t, err)

	status := buildStatus(sup)
	assert.False(t, status.Running)
	assert.Len(t, status.Sources, len(domain.AllSources()))
	assert.Zero(t, status.Sources["pumpfun"].Received)
}
