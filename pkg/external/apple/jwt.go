package apple

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// maxServerAPITokenTTL and maxCatalogTokenTTL bound the ES256 JWT lifetime
// Apple accepts for the App Store Server API and the Catalog API
// respectively.
const (
	maxServerAPITokenTTL  = 60 * time.Minute
	maxCatalogTokenTTL    = 20 * time.Minute
	audienceAppStoreConnect = "appstoreconnect-v1"
)

// authToken signs a JWT for App Store Server API / Catalog API calls. kid
// is set on the token header, not the claims, matching Apple's
// requirement.
func (a *Adapter) authToken(ttl time.Duration) (string, error) {
	if ttl > maxServerAPITokenTTL {
		ttl = maxServerAPITokenTTL
	}

	key, err := loadPrivateKey(a.creds.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("load apple private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": a.creds.IssuerID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"aud": audienceAppStoreConnect,
	}
	if a.creds.BundleID != "" {
		claims["bid"] = a.creds.BundleID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = a.creds.KeyID

	return token.SignedString(key)
}

// loadPrivateKey parses a developer-supplied PEM-encoded PKCS8 P-256
// private key.
func loadPrivateKey(pemStr string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS8 private key: %w", err)
	}

	ecdsaKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an ECDSA private key")
	}
	return ecdsaKey, nil
}
