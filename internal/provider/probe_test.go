package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-launcher/internal/solana"
	"solana-token-launcher/internal/solana/stub"
)

func TestProbeProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path == "/token/Mint1111" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewProbeProvider(Config{ID: "auto-track", Endpoint: server.URL + "/token/{mint}"}, server.Client())

	out := p.Attempt(context.Background(), testToken)
	require.True(t, out.Success, "outcome: %+v", out)
	assert.Equal(t, server.URL+"/token/Mint1111", out.Reference)

	other := testToken
	other.MintAddress = "Unknown"
	out = p.Attempt(context.Background(), other)
	assert.Equal(t, KindNotFound, out.ErrorKind)
}

func TestOnchainProvider(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddAccount("Mint1111", &solana.AccountInfo{Owner: solana.TokenProgramID, Lamports: 1461600})
	rpc.AddAccount("Wallet", &solana.AccountInfo{Owner: "11111111111111111111111111111111"})

	p := NewOnchainProvider(Config{ID: "onchain"}, rpc)

	out := p.Attempt(context.Background(), testToken)
	require.True(t, out.Success)
	assert.Equal(t, "solana:Mint1111", out.Reference)

	wallet := testToken
	wallet.MintAddress = "Wallet"
	assert.Equal(t, KindUnexpectedResponse, p.Attempt(context.Background(), wallet).ErrorKind)

	missing := testToken
	missing.MintAddress = "Missing"
	assert.Equal(t, KindNotFound, p.Attempt(context.Background(), missing).ErrorKind)
}

func TestOnchainProvider_Unavailable(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AccountErr = solana.ErrUnavailable

	p := NewOnchainProvider(Config{ID: "onchain"}, rpc)
	assert.Equal(t, KindTransportError, p.Attempt(context.Background(), testToken).ErrorKind)
}
