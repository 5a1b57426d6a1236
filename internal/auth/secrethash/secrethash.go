// Package secrethash derives the per-call secret hash the identity
// provider requires on credential operations: HMAC-SHA256 over the
// account identifier concatenated with the app client id, keyed by the
// app client secret, base64 encoded.
package secrethash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/clinvol/identity-service/internal/identity"
)

// Deriver computes secret hashes for a fixed client id/secret pair.
// Safe for concurrent use; the key material is read-only after New.
type Deriver struct {
	clientID     string
	clientSecret string
}

// New validates the key material up front so a misconfigured deployment
// fails at startup instead of on the first provider call.
func New(clientID, clientSecret string) (*Deriver, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: app client id is empty", identity.ErrConfiguration)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: app client secret is empty", identity.ErrConfiguration)
	}
	return &Deriver{clientID: clientID, clientSecret: clientSecret}, nil
}

// Derive returns the secret hash for the given account identifier
// (email, or the provider subject id on the refresh path).
func (d *Deriver) Derive(identifier string) string {
	mac := hmac.New(sha256.New, []byte(d.clientSecret))
	mac.Write([]byte(identifier + d.clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
