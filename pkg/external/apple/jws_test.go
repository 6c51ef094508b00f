package apple

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// buildJWS signs header.payload with key and returns the three-segment
// JWS compact serialization apple's decodeJWS expects.
func buildJWS(t *testing.T, header jwsHeader, payload interface{}, key *ecdsa.PrivateKey) string {
	t.Helper()

	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)
	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)

	headerSeg := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadSeg := base64.RawURLEncoding.EncodeToString(payloadJSON)
	signedData := headerSeg + "." + payloadSeg

	hash := sha256.Sum256([]byte(signedData))
	r, s, err := ecdsa.Sign(rand.Reader, key, hash[:])
	require.NoError(t, err)

	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	sigSeg := base64.RawURLEncoding.EncodeToString(sig)

	return signedData + "." + sigSeg
}

// selfSignedAppleRoot builds a single-certificate chain, so the issuer
// walk in verifyAppleChain is a no-op and only the root-subject check and
// leaf ECDSA verification are exercised.
func selfSignedAppleRoot(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Apple Root CA - Test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	return key, base64.StdEncoding.EncodeToString(der)
}

func TestDecodeJWSWithoutVerification(t *testing.T) {
	key, certB64 := selfSignedAppleRoot(t)
	header := jwsHeader{Algorithm: "ES256", X5C: []string{certB64}}
	payload := map[string]string{"bundleId": "com.opencat.demo"}
	token := buildJWS(t, header, payload, key)

	var out map[string]string
	err := decodeJWS(token, false, &out)
	require.NoError(t, err)
	require.Equal(t, "com.opencat.demo", out["bundleId"])
}

func TestDecodeJWSWithChainVerification(t *testing.T) {
	key, certB64 := selfSignedAppleRoot(t)
	header := jwsHeader{Algorithm: "ES256", X5C: []string{certB64}}
	payload := notificationPayload{NotificationType: "SUBSCRIBED"}
	token := buildJWS(t, header, payload, key)

	var out notificationPayload
	err := decodeJWS(token, true, &out)
	require.NoError(t, err)
	require.Equal(t, "SUBSCRIBED", out.NotificationType)
}

func TestDecodeJWSRejectsNonAppleRoot(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Some Other CA"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	header := jwsHeader{Algorithm: "ES256", X5C: []string{base64.StdEncoding.EncodeToString(der)}}
	token := buildJWS(t, header, map[string]string{"ok": "true"}, key)

	var out map[string]string
	err = decodeJWS(token, true, &out)
	require.Error(t, err)
}

func TestDecodeJWSRejectsTamperedPayload(t *testing.T) {
	key, certB64 := selfSignedAppleRoot(t)
	header := jwsHeader{Algorithm: "ES256", X5C: []string{certB64}}
	token := buildJWS(t, header, map[string]string{"bundleId": "com.opencat.demo"}, key)

	// Swap in a different payload while keeping the original header and
	// signature, so the signature no longer covers the signed input.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"bundleId":"com.attacker.app"}`))
	tampered := strings.Join(parts, ".")

	var out map[string]string
	err := decodeJWS(tampered, true, &out)
	require.Error(t, err)
}

func TestDecodeJWSRejectsMalformedToken(t *testing.T) {
	var out map[string]string
	err := decodeJWS("not-a-jws", false, &out)
	require.Error(t, err)
}
