package apple

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func unsignedJWS(t *testing.T, payload interface{}) string {
	t.Helper()
	headerJSON, err := json.Marshal(jwsHeader{Algorithm: "none"})
	require.NoError(t, err)
	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)

	headerSeg := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadSeg := base64.RawURLEncoding.EncodeToString(payloadJSON)
	return headerSeg + "." + payloadSeg + ".sig"
}

func TestPeekBundleID(t *testing.T) {
	payload := envelopeBundleID{}
	payload.Data.BundleID = "com.opencat.demo"
	signedPayload := unsignedJWS(t, payload)

	envelope, err := json.Marshal(map[string]string{"signedPayload": signedPayload})
	require.NoError(t, err)

	bundleID, err := PeekBundleID(envelope)
	require.NoError(t, err)
	require.Equal(t, "com.opencat.demo", bundleID)
}

func TestPeekBundleIDRejectsMissingBundleID(t *testing.T) {
	signedPayload := unsignedJWS(t, envelopeBundleID{})
	envelope, err := json.Marshal(map[string]string{"signedPayload": signedPayload})
	require.NoError(t, err)

	_, err = PeekBundleID(envelope)
	require.Error(t, err)
}

func TestPeekBundleIDRejectsMalformedEnvelope(t *testing.T) {
	_, err := PeekBundleID([]byte("not json"))
	require.Error(t, err)
}
