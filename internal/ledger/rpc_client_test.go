package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-launcher/internal/solana"
	"solana-token-launcher/internal/solana/stub"
)

func testCredential(t *testing.T) *WalletCredential {
	t.Helper()
	return NewCredential(testKey(t))
}

var fakeBuilder = TxBuilderFunc(func(_ context.Context, tx MintTx) ([]byte, error) {
	msg := []byte(tx.RecentBlockhash + tx.Mint.PublicKey())
	return append(tx.Payer.Sign(msg), tx.Mint.Sign(msg)...), nil
})

func newTestClient(rpc solana.RPCClient, ws solana.WSClient) *RPCClient {
	return NewRPCClient(RPCClientOptions{
		RPC:                rpc,
		WS:                 ws,
		Builder:            fakeBuilder,
		MinBalanceLamports: 10_000_000,
		ConfirmTimeout:     200 * time.Millisecond,
		PollInterval:       10 * time.Millisecond,
	})
}

var testParams = MintParams{Name: "Test", Symbol: "TST", Decimals: 9, InitialSupply: 1_000_000_000}

func TestRPCClient_Mint(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 1_000_000_000)

	res, err := newTestClient(rpc, nil).Mint(context.Background(), cred, testParams)
	require.NoError(t, err)

	assert.NotEmpty(t, res.MintAddress)
	assert.NotEmpty(t, res.Signature)
	assert.False(t, res.Simulated)
	assert.Equal(t, 1, rpc.SentCount())
}

func TestRPCClient_Mint_InsufficientBalance(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 5)

	_, err := newTestClient(rpc, nil).Mint(context.Background(), cred, testParams)
	require.Error(t, err)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
	assert.Equal(t, 0, rpc.SentCount(), "nothing must be sent")
}

func TestRPCClient_Mint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		sendErr error
		want    ErrorKind
	}{
		{
			name:    "transport outage",
			sendErr: fmt.Errorf("%w: sendTransaction: max retries exceeded", solana.ErrUnavailable),
			want:    KindRPCUnavailable,
		},
		{
			name: "no prior credit",
			sendErr: &solana.RPCError{
				Code:    -32002,
				Message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.",
			},
			want: KindInsufficientFunds,
		},
		{
			name: "insufficient lamports in logs",
			sendErr: &solana.RPCError{
				Code:    -32002,
				Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1",
				Data:    &solana.RPCErrorDetail{Logs: []string{"Transfer: insufficient lamports 100, need 1461600"}},
			},
			want: KindInsufficientFunds,
		},
		{
			name:    "blockhash not found",
			sendErr: &solana.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"},
			want:    KindRejectedTransaction,
		},
		{
			name:    "node behind",
			sendErr: &solana.RPCError{Code: -32005, Message: "Node is behind by 42 slots"},
			want:    KindRPCUnavailable,
		},
		{
			name:    "other",
			sendErr: errors.New("boom"),
			want:    KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := testCredential(t)
			rpc := stub.NewRPCClient()
			rpc.SetBalance(cred.PublicKey(), 1_000_000_000)
			rpc.SendErr = tt.sendErr

			_, err := newTestClient(rpc, nil).Mint(context.Background(), cred, testParams)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.Equal(t, tt.want == KindRPCUnavailable, IsRetryable(err))
		})
	}
}

func TestRPCClient_Mint_FailedConfirmation(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 1_000_000_000)
	rpc.AutoConfirm = false

	ws := &fakeWS{notification: &solana.SignatureNotification{Err: map[string]interface{}{"InstructionError": []interface{}{0, "InvalidAccountData"}}}}

	_, err := newTestClient(rpc, ws).Mint(context.Background(), cred, testParams)
	require.Error(t, err)
	assert.Equal(t, KindRejectedTransaction, KindOf(err))
}

func TestRPCClient_Mint_ConfirmViaWebsocket(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 1_000_000_000)
	rpc.AutoConfirm = false

	ws := &fakeWS{notification: &solana.SignatureNotification{Slot: 10}}

	_, err := newTestClient(rpc, ws).Mint(context.Background(), cred, testParams)
	require.NoError(t, err)
	assert.Equal(t, 1, ws.subscribed)
}

func TestRPCClient_Mint_DroppedSubscriptionPolls(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 1_000_000_000)

	// Channel closes without a value; the stub confirms on poll.
	ws := &fakeWS{}

	_, err := newTestClient(rpc, ws).Mint(context.Background(), cred, testParams)
	require.NoError(t, err)
}

func TestRPCClient_Mint_ConfirmTimeout(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 1_000_000_000)
	rpc.AutoConfirm = false

	_, err := newTestClient(rpc, nil).Mint(context.Background(), cred, testParams)
	require.Error(t, err)
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.False(t, IsRetryable(err))
}

func TestRPCClient_Mint_NoBuilder(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 1_000_000_000)

	client := NewRPCClient(RPCClientOptions{RPC: rpc})
	_, err := client.Mint(context.Background(), cred, testParams)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTxBuilder)
	assert.Equal(t, 0, rpc.SentCount())
}

func TestRPCClient_Mint_PassesRentToBuilder(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 1_000_000_000)

	var got MintTx
	client := NewRPCClient(RPCClientOptions{
		RPC: rpc,
		Builder: TxBuilderFunc(func(ctx context.Context, tx MintTx) ([]byte, error) {
			got = tx
			return fakeBuilder(ctx, tx)
		}),
		PollInterval: 10 * time.Millisecond,
	})
	_, err := client.Mint(context.Background(), cred, testParams)
	require.NoError(t, err)

	assert.Equal(t, uint64(1_461_600), got.RentLamports)
	assert.Equal(t, cred.PublicKey(), got.Payer.PublicKey())
	assert.Equal(t, testParams, got.Params)
}

func TestRPCClient_Mint_RentLookupFails(t *testing.T) {
	cred := testCredential(t)
	rpc := stub.NewRPCClient()
	rpc.SetBalance(cred.PublicKey(), 1_000_000_000)
	rpc.RentErr = fmt.Errorf("%w: getMinimumBalanceForRentExemption after 4 attempts", solana.ErrUnavailable)

	_, err := newTestClient(rpc, nil).Mint(context.Background(), cred, testParams)
	require.Error(t, err)
	assert.Equal(t, KindRPCUnavailable, KindOf(err))
	assert.Equal(t, 0, rpc.SentCount())
}

func TestSimulatedClient_Mint(t *testing.T) {
	client := NewSimulatedClient(nil)

	a, err := client.Mint(context.Background(), nil, testParams)
	require.NoError(t, err)
	b, err := client.Mint(context.Background(), nil, testParams)
	require.NoError(t, err)

	assert.True(t, a.Simulated)
	assert.NotEqual(t, a.MintAddress, b.MintAddress)
	assert.Contains(t, a.Signature, "simulated_")
}

func TestScaledSupply(t *testing.T) {
	assert.Equal(t, uint64(1_000_000_000_000_000_000), ScaledSupply(1_000_000_000, 9))
	assert.Equal(t, uint64(5), ScaledSupply(5, 0))
	assert.Equal(t, ^uint64(0), ScaledSupply(1_000_000_000_000, 9))
}

// fakeWS delivers one notification, or closes the channel when notification is nil.
type fakeWS struct {
	notification *solana.SignatureNotification
	subscribed   int
}

func (f *fakeWS) SubscribeSignature(_ context.Context, sig string) (<-chan solana.SignatureNotification, error) {
	f.subscribed++
	ch := make(chan solana.SignatureNotification, 1)
	if f.notification != nil {
		n := *f.notification
		n.Signature = sig
		ch <- n
	}
	close(ch)
	return ch, nil
}

func (f *fakeWS) Close() error { return nil }
