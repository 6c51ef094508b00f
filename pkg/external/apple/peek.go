package apple

import (
	"encoding/json"
	"fmt"
)

// envelopeBundleID is the subset of an App Store Server Notification V2
// payload needed to route the notification to the owning App before any
// credentials (and therefore any adapter) are available. It is read
// without signature verification, for routing rather than trust
// decisions; the authoritative verified read happens inside
// ProcessNotification once the owning App's adapter is constructed.
type envelopeBundleID struct {
	Data struct {
		BundleID string `json:"bundleId"`
	} `json:"data"`
}

// PeekBundleID extracts the bundle id from an App Store Server
// Notification envelope without verifying its signature, so the caller can
// look up which App owns the notification.
func PeekBundleID(rawBody []byte) (string, error) {
	var envelope struct {
		SignedPayload string `json:"signedPayload"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return "", fmt.Errorf("apple notification envelope: %w", err)
	}

	var payload envelopeBundleID
	if err := parseUnverifiedJSON(envelope.SignedPayload, &payload); err != nil {
		return "", fmt.Errorf("apple notification payload: %w", err)
	}
	if payload.Data.BundleID == "" {
		return "", fmt.Errorf("apple notification payload carries no bundle id")
	}
	return payload.Data.BundleID, nil
}

// parseUnverifiedJSON decodes the middle segment of a three-part JWS
// without checking its signature.
func parseUnverifiedJSON(token string, out interface{}) error {
	return decodeJWS(token, false, out)
}
