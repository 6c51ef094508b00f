package apple

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"opencat/pkg/external/storeadapter"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block))
}

func TestAuthTokenSignsES256JWT(t *testing.T) {
	pemStr := testPrivateKeyPEM(t)
	a := New(storeadapter.AppleCredentials{
		IssuerID:   "issuer-123",
		KeyID:      "KEY123",
		PrivateKey: pemStr,
		BundleID:   "com.opencat.demo",
	}, true)

	token, err := a.authToken(maxServerAPITokenTTL)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	key, err := loadPrivateKey(pemStr)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	require.Equal(t, "ES256", parsed.Method.Alg())
	require.Equal(t, "KEY123", parsed.Header["kid"])
	require.Equal(t, "issuer-123", claims["iss"])
	require.Equal(t, "appstoreconnect-v1", claims["aud"])
	require.Equal(t, "com.opencat.demo", claims["bid"])
}

func TestAuthTokenClampsTTL(t *testing.T) {
	pemStr := testPrivateKeyPEM(t)
	a := New(storeadapter.AppleCredentials{IssuerID: "issuer", KeyID: "kid", PrivateKey: pemStr}, true)

	token, err := a.authToken(2 * maxServerAPITokenTTL)
	require.NoError(t, err)

	key, err := loadPrivateKey(pemStr)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)

	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	require.LessOrEqual(t, exp-iat, maxServerAPITokenTTL.Seconds())
}

func TestLoadPrivateKeyRejectsGarbage(t *testing.T) {
	_, err := loadPrivateKey("not a pem block")
	require.Error(t, err)
}
