package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/jwk"
)

const wellKnownPath = "/.well-known/openid-configuration"

type WellKnownData struct {
	SignatureTypes []string `json:"id_token_signing_alg_values_supported"`
	JWKSURI        string   `json:"jwks_uri"`
}

// KeySource resolves signing keys for the admin tokens. Keys come from JWKSURL when set, otherwise
// from the jwks_uri the issuer advertises in its discovery document.
type KeySource struct {
	Issuer  string
	JWKSURL string

	mu             sync.Mutex
	wellKnown      WellKnownData
	wellKnownFetch time.Time
	autoRefresh    *jwk.AutoRefresh
}

func NewKeySource(ctx context.Context, issuer, jwksURL string) *KeySource {
	return &KeySource{
		Issuer:      strings.TrimSuffix(issuer, "/"),
		JWKSURL:     jwksURL,
		autoRefresh: jwk.NewAutoRefresh(ctx),
	}
}

func (k *KeySource) WellKnown(ctx context.Context) (WellKnownData, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.JWKSURL != "" {
		if k.wellKnown.JWKSURI == "" {
			k.wellKnown = WellKnownData{SignatureTypes: []string{"RS256", "ES256"}, JWKSURI: k.JWKSURL}
			k.autoRefresh.Configure(k.JWKSURL)
		}
		return k.wellKnown, nil
	}

	if k.wellKnown.JWKSURI != "" && time.Now().UTC().Sub(k.wellKnownFetch) < 24*time.Hour {
		return k.wellKnown, nil
	}
	if k.Issuer == "" {
		return WellKnownData{}, errors.New("no issuer or jwks url configured")
	}

	httpClient := http.Client{Timeout: time.Second * 2}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.Issuer+wellKnownPath, nil)
	if err != nil {
		return WellKnownData{}, err
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return WellKnownData{}, err
	}
	defer res.Body.Close()

	var data WellKnownData
	if err = json.NewDecoder(res.Body).Decode(&data); err != nil {
		return WellKnownData{}, err
	}
	if data.JWKSURI == "" {
		return WellKnownData{}, errors.New("discovery document has no jwks_uri")
	}

	k.autoRefresh.Configure(data.JWKSURI)
	k.wellKnown = data
	k.wellKnownFetch = time.Now().UTC()
	return data, nil
}

// LookupKey returns the raw public key with the given key id.
func (k *KeySource) LookupKey(ctx context.Context, keyID string) (interface{}, error) {
	wellKnown, err := k.WellKnown(ctx)
	if err != nil {
		return nil, err
	}

	set, err := k.autoRefresh.Fetch(ctx, wellKnown.JWKSURI)
	if err != nil {
		return nil, err
	}

	key, found := set.LookupKeyID(keyID)
	if !found {
		return nil, errors.New("signing key not found")
	}
	var keyData interface{}
	err = key.Raw(&keyData)
	return keyData, err
}
