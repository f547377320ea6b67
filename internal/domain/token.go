package domain

// LaunchState is the lifecycle state of a single launch request.
type LaunchState string

const (
	LaunchStateCreated    LaunchState = "CREATED"
	LaunchStateMinting    LaunchState = "MINTING"
	LaunchStateMintFailed LaunchState = "MINT_FAILED"
	LaunchStateMinted     LaunchState = "MINTED"
	LaunchStateListing    LaunchState = "LISTING"
	LaunchStateCompleted  LaunchState = "COMPLETED"
)

// TokenRecord represents one token lifecycle instance.
// Stored as a single JSON document keyed by ID.
type TokenRecord struct {
	ID          string  `json:"id"`                  // opaque, assigned at creation
	Name        string  `json:"name"`                // immutable once minted
	Symbol      string  `json:"symbol"`              // immutable once minted
	Description string  `json:"description"`         // immutable once minted
	ImageRef    *string `json:"image_ref,omitempty"` // external asset reference (nullable)

	MintAddress   *string `json:"mint_address,omitempty"`   // set once, after a successful mint
	MintSignature *string `json:"mint_signature,omitempty"` // ledger transaction id of the mint
	Simulated     bool    `json:"simulated,omitempty"`      // mint produced by the simulated ledger

	LaunchState      LaunchState                `json:"launch_state"`
	PlatformStatuses map[string]*PlatformStatus `json:"platform_statuses"`
	LastError        string                     `json:"last_error,omitempty"` // last launch-level failure

	CreatedAt int64 `json:"created_at"` // Unix timestamp in milliseconds
	UpdatedAt int64 `json:"updated_at"` // Unix timestamp in milliseconds

	// Version is maintained by the store for optimistic concurrency.
	Version int64 `json:"version"`
}

// NewTokenRecord creates a record in CREATED state with every platform NOT_ATTEMPTED.
func NewTokenRecord(id string, req LaunchRequest, now int64) *TokenRecord {
	statuses := make(map[string]*PlatformStatus, len(req.Platforms))
	for _, p := range req.Platforms {
		statuses[p] = &PlatformStatus{State: PlatformStateNotAttempted}
	}
	rec := &TokenRecord{
		ID:               id,
		Name:             req.Name,
		Symbol:           req.Symbol,
		Description:      req.Description,
		LaunchState:      LaunchStateCreated,
		PlatformStatuses: statuses,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.ImageRef != "" {
		ref := req.ImageRef
		rec.ImageRef = &ref
	}
	return rec
}

// IsMinted reports whether the ledger mint has succeeded.
func (r *TokenRecord) IsMinted() bool {
	return r.MintAddress != nil && *r.MintAddress != ""
}

// SetMint records the mint result. It refuses to overwrite an existing mint address.
func (r *TokenRecord) SetMint(address, signature string, simulated bool) error {
	if r.IsMinted() {
		return ErrMintAlreadySet
	}
	r.MintAddress = &address
	if signature != "" {
		r.MintSignature = &signature
	}
	r.Simulated = simulated
	return nil
}

// Platforms returns platform names in sorted order.
func (r *TokenRecord) Platforms() []string {
	return sortedKeys(r.PlatformStatuses)
}

// AllPlatformsTerminal reports whether every platform reached a terminal state.
func (r *TokenRecord) AllPlatformsTerminal() bool {
	for _, ps := range r.PlatformStatuses {
		if !ps.State.IsTerminal() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the record.
func (r *TokenRecord) Clone() *TokenRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.ImageRef != nil {
		v := *r.ImageRef
		c.ImageRef = &v
	}
	if r.MintAddress != nil {
		v := *r.MintAddress
		c.MintAddress = &v
	}
	if r.MintSignature != nil {
		v := *r.MintSignature
		c.MintSignature = &v
	}
	c.PlatformStatuses = make(map[string]*PlatformStatus, len(r.PlatformStatuses))
	for name, ps := range r.PlatformStatuses {
		c.PlatformStatuses[name] = ps.Clone()
	}
	return &c
}
