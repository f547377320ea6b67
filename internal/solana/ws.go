package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature waits for a transaction signature to reach confirmed commitment.
	// The channel receives at most one notification and is then closed. It is also closed
	// without a value if the connection drops, in which case callers should poll.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification reports the processed result of a transaction.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{} // non-nil if the transaction failed
}
