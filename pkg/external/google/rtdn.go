package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"
)

// pubSubEnvelope is the outer Pub/Sub push wrapper Google wraps every RTDN
// in: message.data is base64-encoded JSON carrying the actual
// developerNotification.
type pubSubEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// developerNotification is the decoded message.data payload.
type developerNotification struct {
	Version                    string                          `json:"version"`
	PackageName                string                          `json:"packageName"`
	SubscriptionNotification   *subscriptionNotification       `json:"subscriptionNotification,omitempty"`
	OneTimeProductNotification *oneTimeProductNotification     `json:"oneTimeProductNotification,omitempty"`
	TestNotification           *struct{ Version string }       `json:"testNotification,omitempty"`
}

type subscriptionNotification struct {
	NotificationType int    `json:"notificationType"`
	PurchaseToken    string `json:"purchaseToken"`
	SubscriptionID   string `json:"subscriptionId"`
}

type oneTimeProductNotification struct {
	NotificationType int    `json:"notificationType"`
	PurchaseToken    string `json:"purchaseToken"`
	SKU              string `json:"sku"`
}

// Google's integer subscription notification type vocabulary.
const (
	notifSubscriptionRecovered = 1
	notifSubscriptionRenewed   = 2
	notifSubscriptionCanceled  = 3
	notifSubscriptionPurchased = 4
	notifSubscriptionOnHold    = 5
	notifSubscriptionInGrace   = 6
	notifSubscriptionRestarted = 7
	notifSubscriptionRevoked   = 12
	notifSubscriptionExpired   = 13
)

// ProcessNotification decodes the Pub/Sub envelope and, because the
// envelope carries only a purchaseToken and not full transaction state,
// follows up with GetStatus to obtain the complete record before emitting
// the normalized event.
func (a *Adapter) ProcessNotification(ctx context.Context, rawBody []byte) ([]storeadapter.TransactionEvent, error) {
	var envelope pubSubEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("parse google pubsub envelope: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		return nil, fmt.Errorf("decode google pubsub message data: %w", err)
	}

	var notif developerNotification
	if err := json.Unmarshal(data, &notif); err != nil {
		return nil, fmt.Errorf("parse google developer notification: %w", err)
	}

	if notif.TestNotification != nil {
		return nil, nil
	}

	if notif.SubscriptionNotification != nil {
		return a.processSubscriptionNotification(ctx, notif.SubscriptionNotification)
	}
	if notif.OneTimeProductNotification != nil {
		// Non-subscription purchases don't carry entitlement expirations;
		// the event vocabulary and active-entitlement computation are
		// both subscription-status-driven, so one-time product
		// notifications are acknowledged at the transport layer but
		// produce no Event.
		return nil, nil
	}
	return nil, nil
}

func (a *Adapter) processSubscriptionNotification(ctx context.Context, notif *subscriptionNotification) ([]storeadapter.TransactionEvent, error) {
	kind, ok := googleEventKind(notif.NotificationType)
	if !ok {
		return nil, nil
	}

	vt, err := a.GetStatus(ctx, notif.PurchaseToken, notif.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("google enrichment lookup: %w", err)
	}

	return []storeadapter.TransactionEvent{{Kind: kind, Transaction: *vt}}, nil
}

// googleEventKind maps Google's integer notificationType vocabulary onto
// the normalized event-kind set.
func googleEventKind(notificationType int) (string, bool) {
	switch notificationType {
	case notifSubscriptionPurchased:
		return models.EventKindInitialPurchase, true
	case notifSubscriptionRenewed, notifSubscriptionRestarted:
		return models.EventKindRenewal, true
	case notifSubscriptionCanceled:
		return models.EventKindCancellation, true
	case notifSubscriptionExpired:
		return models.EventKindExpiration, true
	case notifSubscriptionRevoked:
		return models.EventKindRefund, true
	case notifSubscriptionOnHold, notifSubscriptionInGrace:
		return models.EventKindBillingIssueDetected, true
	case notifSubscriptionRecovered:
		return models.EventKindBillingIssueResolved, true
	default:
		return "", false
	}
}
