package solana

// Well-known program IDs.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// MintAccountSize is the size of an SPL token mint account.
const MintAccountSize = 82

// Commitment levels reported by getSignatureStatuses.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Blockhash from getLatestBlockhash.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
	Slot                 int64
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *uint64     // nil once rooted
	Err                interface{} // non-nil if the transaction failed
	ConfirmationStatus string
}

// IsConfirmed reports whether the status reached at least confirmed commitment.
func (s *SignatureStatus) IsConfirmed() bool {
	return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// IsTokenMint reports whether the account is owned by an SPL token program.
func (a *AccountInfo) IsTokenMint() bool {
	return a.Owner == TokenProgramID || a.Owner == Token2022ProgramID
}
