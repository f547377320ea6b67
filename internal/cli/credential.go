package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"solana-token-launcher/internal/ledger"
)

// DefaultKeypairEnv is the variable holding the base58 wallet secret.
const DefaultKeypairEnv = "WALLET_PRIVATE_KEY"

// credentialFlags selects where the wallet credential comes from.
type credentialFlags struct {
	env  string
	file string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.env, "keypair-env", DefaultKeypairEnv, "environment variable holding the base58 wallet secret")
	cmd.Flags().StringVar(&f.file, "keypair-file", "", "wallet keypair file (base58 or Solana CLI JSON byte array)")
}

// resolve returns the credential, or nil when none is configured.
func (f *credentialFlags) resolve() (*ledger.WalletCredential, error) {
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return nil, fmt.Errorf("read keypair file: %w", err)
		}
		return parseKeypair(string(data))
	}
	if f.env == "" {
		return nil, nil
	}
	secret := os.Getenv(f.env)
	if strings.TrimSpace(secret) == "" {
		return nil, nil
	}
	return parseKeypair(secret)
}

// parseKeypair accepts a base58 secret or the JSON byte array written by solana-keygen.
func parseKeypair(s string) (*ledger.WalletCredential, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var raw []byte
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("%w: bad keypair JSON", ledger.ErrMalformedCredential)
		}
		for _, n := range ints {
			if n < 0 || n > 255 {
				return nil, fmt.Errorf("%w: keypair byte out of range", ledger.ErrMalformedCredential)
			}
			raw = append(raw, byte(n))
		}
		s = base58.Encode(raw)
	}
	return ledger.ParseCredential(s)
}
