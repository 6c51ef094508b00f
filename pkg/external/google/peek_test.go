package google

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func pubSubEnvelopeFor(t *testing.T, notif developerNotification) []byte {
	t.Helper()
	data, err := json.Marshal(notif)
	require.NoError(t, err)

	envelope := pubSubEnvelope{}
	envelope.Message.Data = base64.StdEncoding.EncodeToString(data)
	envelope.Message.MessageID = "1"

	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	return raw
}

func TestPeekPackageName(t *testing.T) {
	raw := pubSubEnvelopeFor(t, developerNotification{
		PackageName: "com.opencat.demo",
		SubscriptionNotification: &subscriptionNotification{
			NotificationType: notifSubscriptionRenewed,
			PurchaseToken:    "token-abc",
		},
	})

	packageName, err := PeekPackageName(raw)
	require.NoError(t, err)
	require.Equal(t, "com.opencat.demo", packageName)
}

func TestPeekPackageNameRejectsMissingPackageName(t *testing.T) {
	raw := pubSubEnvelopeFor(t, developerNotification{})

	_, err := PeekPackageName(raw)
	require.Error(t, err)
}

func TestPeekPackageNameRejectsMalformedEnvelope(t *testing.T) {
	_, err := PeekPackageName([]byte("not json"))
	require.Error(t, err)
}

func TestProcessNotificationIgnoresTestNotification(t *testing.T) {
	raw := pubSubEnvelopeFor(t, developerNotification{
		PackageName:      "com.opencat.demo",
		TestNotification: &struct{ Version string }{Version: "1.0"},
	})

	a := &Adapter{packageName: "com.opencat.demo"}
	events, err := a.ProcessNotification(nil, raw)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestProcessNotificationIgnoresOneTimeProductNotification(t *testing.T) {
	raw := pubSubEnvelopeFor(t, developerNotification{
		PackageName: "com.opencat.demo",
		OneTimeProductNotification: &oneTimeProductNotification{
			NotificationType: 1,
			SKU:              "coins_100",
		},
	})

	a := &Adapter{packageName: "com.opencat.demo"}
	events, err := a.ProcessNotification(nil, raw)
	require.NoError(t, err)
	require.Empty(t, events)
}
