package google

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PeekPackageName extracts the package name from a Pub/Sub RTDN envelope
// without constructing an authenticated client, so the caller can look up
// which App owns the notification before any adapter exists.
func PeekPackageName(rawBody []byte) (string, error) {
	var envelope pubSubEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return "", fmt.Errorf("google pubsub envelope: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		return "", fmt.Errorf("decode google pubsub message data: %w", err)
	}

	var notif developerNotification
	if err := json.Unmarshal(data, &notif); err != nil {
		return "", fmt.Errorf("parse google developer notification: %w", err)
	}
	if notif.PackageName == "" {
		return "", fmt.Errorf("google notification carries no package name")
	}
	return notif.PackageName, nil
}
