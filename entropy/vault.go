package entropy

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cockroachdb/errors"
	vaultapi "github.com/hashicorp/vault/api"
)

// vaultMaxBytes is the largest request Vault's random endpoint accepts.
const vaultMaxBytes = 128 * 1024

// Vault requests random bytes from a HashiCorp Vault server's
// sys/tools/random endpoint.
type Vault struct {
	client *vaultapi.Client
}

// NewVault connects to the Vault server at address using token. An empty
// address falls back to VAULT_ADDR.
func NewVault(address, token string) (*Vault, error) {
	cfg := vaultapi.DefaultConfig()
	if cfg.Error != nil {
		return nil, errors.Wrap(cfg.Error, "vault config")
	}
	if address != "" {
		cfg.Address = address
	}
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "vault client")
	}
	if token != "" {
		client.SetToken(token)
	}
	return &Vault{client: client}, nil
}

// RequestBits fetches ceil(n/8) bytes in one call and returns the first n
// bits.
func (v *Vault) RequestBits(ctx context.Context, n int) (Bits, error) {
	if err := checkRequest(ctx, n); err != nil {
		return nil, err
	}
	nbytes := (n + 7) / 8
	if nbytes > vaultMaxBytes {
		return nil, errors.Mark(
			errors.Wrapf(ErrCapacityExceeded, "%d bytes requested, vault serves at most %d", nbytes, vaultMaxBytes),
			ErrUnavailable)
	}

	path := fmt.Sprintf("sys/tools/random/%d", nbytes)
	secret, err := v.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"format": "base64",
	})
	if err != nil {
		return nil, Unavailable(errors.Wrap(err, "vault random"))
	}
	if secret == nil || secret.Data == nil {
		return nil, Unavailable(errors.New("vault random: empty response"))
	}
	encoded, ok := secret.Data["random_bytes"].(string)
	if !ok {
		return nil, Unavailable(errors.New("vault random: missing random_bytes"))
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, Unavailable(errors.Wrap(err, "vault random: decode"))
	}
	if len(raw) < nbytes {
		return nil, Unavailable(errors.Newf("vault random: got %d bytes, want %d", len(raw), nbytes))
	}
	return FromBytes(raw, n), nil
}
