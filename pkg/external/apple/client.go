// Package apple implements the storeadapter.API capability against
// Apple's App Store Server API: ES256 bearer-JWT auth, signed-transaction
// JWS parsing, and server-notification decoding.
package apple

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker/v2"
)

const (
	productionBaseURL = "https://api.storekit.itunes.apple.com"
	sandboxBaseURL     = "https://api.storekit-sandbox.itunes.apple.com"
	requestTimeout      = 10 * time.Second
)

// Adapter talks to the App Store Server API for one App's credentials.
type Adapter struct {
	creds      storeadapter.AppleCredentials
	httpClient *http.Client
	// devMode, when true, skips JWS chain verification.
	// The factory that constructs Adapters must refuse to set this when
	// the process run mode is production.
	devMode bool
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// New constructs an Apple adapter. devMode must never be true when the
// process is running with OPENCAT__RUN_MODE=production; the caller
// (external.Factory) enforces this before calling New.
func New(creds storeadapter.AppleCredentials, devMode bool) *Adapter {
	return &Adapter{
		creds:      creds,
		httpClient: &http.Client{Timeout: requestTimeout},
		devMode:    devMode,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:    "apple-store-api",
			Timeout: 30 * time.Second,
		}),
	}
}

// transactionInfo is the decoded payload of an App Store Server API
// signedTransactionInfo JWS.
type transactionInfo struct {
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	ProductID             string `json:"productId"`
	PurchaseDate          int64  `json:"purchaseDate"`
	ExpiresDate           int64  `json:"expiresDate"`
	RevocationDate        int64  `json:"revocationDate"`
	Environment           string `json:"environment"`
	TransactionReason     string `json:"transactionReason"`
}

func (t transactionInfo) toVerified() storeadapter.VerifiedTransaction {
	vt := storeadapter.VerifiedTransaction{
		Store:              models.StoreApple,
		StoreTransactionID: t.TransactionID,
		StoreProductID:     t.ProductID,
		PurchasedAt:        time.UnixMilli(t.PurchaseDate),
		Status:             models.TransactionStatusActive,
	}
	if t.ExpiresDate > 0 {
		exp := time.UnixMilli(t.ExpiresDate)
		vt.ExpiresAt = &exp
		if exp.Before(time.Now()) {
			vt.Status = models.TransactionStatusExpired
		}
	}
	if t.RevocationDate > 0 {
		vt.Status = models.TransactionStatusRefunded
	}
	return vt
}

// Verify looks up a transaction by id (rawReceipt for Apple is the
// store-assigned transaction id, or a signedTransaction JWS from which the
// id is extracted).
func (a *Adapter) Verify(ctx context.Context, rawReceipt, storeProductID string) (*storeadapter.VerifiedTransaction, error) {
	transactionID := rawReceipt
	if looksLikeJWS(rawReceipt) {
		var claims jwsTransactionClaims
		if err := parseUnverified(rawReceipt, &claims); err == nil && claims.TransactionID != "" {
			transactionID = claims.TransactionID
		}
	}
	return a.GetStatus(ctx, transactionID, storeProductID)
}

// jwsTransactionClaims is used only to pull a transactionId out of a
// client-submitted signedTransaction without verifying it; full
// verification happens against the authoritative copy returned by
// GetStatus.
type jwsTransactionClaims struct {
	TransactionID string `json:"transactionId"`
}

func (c *jwsTransactionClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (c *jwsTransactionClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c *jwsTransactionClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *jwsTransactionClaims) GetIssuer() (string, error)                  { return "", nil }
func (c *jwsTransactionClaims) GetSubject() (string, error)                 { return "", nil }
func (c *jwsTransactionClaims) GetAudience() (jwt.ClaimStrings, error)      { return nil, nil }

func looksLikeJWS(s string) bool {
	count := 0
	for _, c := range s {
		if c == '.' {
			count++
		}
	}
	return count == 2
}

// GetStatus calls GET /inApps/v1/transactions/{id} and decodes the
// returned signedTransactionInfo JWS.
func (a *Adapter) GetStatus(ctx context.Context, storeTransactionID, _ string) (*storeadapter.VerifiedTransaction, error) {
	token, err := a.authToken(maxServerAPITokenTTL)
	if err != nil {
		return nil, storeError("apple auth", err)
	}

	url := fmt.Sprintf("%s/inApps/v1/transactions/%s", productionBaseURL, storeTransactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, storeError("apple request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.breaker.Execute(func() (*http.Response, error) {
		return a.httpClient.Do(req)
	})
	if err != nil {
		return nil, storeError("apple transaction lookup", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, storeError("apple response read", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, storeError("apple transaction lookup", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var envelope struct {
		SignedTransactionInfo string `json:"signedTransactionInfo"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, storeError("apple response parse", err)
	}

	var info transactionInfo
	if err := decodeJWS(envelope.SignedTransactionInfo, !a.devMode, &info); err != nil {
		return nil, storeError("apple JWS verification", err)
	}

	vt := info.toVerified()
	return &vt, nil
}

// notificationPayload is the decoded payload of the outer signedPayload
// JWS an App Store Server Notification delivers.
type notificationPayload struct {
	NotificationType      string `json:"notificationType"`
	Subtype               string `json:"subtype"`
	Data                  struct {
		SignedTransactionInfo string `json:"signedTransactionInfo"`
	} `json:"data"`
}

// ProcessNotification decodes an App Store Server Notification V2
// envelope and returns the normalized event it describes.
func (a *Adapter) ProcessNotification(ctx context.Context, rawBody []byte) ([]storeadapter.TransactionEvent, error) {
	var envelope struct {
		SignedPayload string `json:"signedPayload"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, storeError("apple notification parse", err)
	}

	var payload notificationPayload
	if err := decodeJWS(envelope.SignedPayload, !a.devMode, &payload); err != nil {
		return nil, storeError("apple notification JWS verification", err)
	}

	kind, ok := appleEventKind(payload.NotificationType, payload.Subtype)
	if !ok {
		// Unknown notification types are logged and ignored by the caller,
		// never a handler failure.
		return nil, nil
	}

	var info transactionInfo
	if payload.Data.SignedTransactionInfo != "" {
		if err := decodeJWS(payload.Data.SignedTransactionInfo, !a.devMode, &info); err != nil {
			return nil, storeError("apple transaction JWS verification", err)
		}
	}

	return []storeadapter.TransactionEvent{{Kind: kind, Transaction: info.toVerified()}}, nil
}

// appleEventKind maps Apple's notificationType/subtype vocabulary onto
// the normalized event-kind set.
func appleEventKind(notificationType, subtype string) (string, bool) {
	switch notificationType {
	case "SUBSCRIBED":
		if subtype == "RESUBSCRIBE" {
			return models.EventKindRenewal, true
		}
		return models.EventKindInitialPurchase, true
	case "DID_RENEW":
		if subtype == "BILLING_RECOVERY" {
			return models.EventKindBillingIssueResolved, true
		}
		return models.EventKindRenewal, true
	case "EXPIRED", "GRACE_PERIOD_EXPIRED":
		return models.EventKindExpiration, true
	case "DID_FAIL_TO_RENEW":
		if subtype == "GRACE_PERIOD" {
			return models.EventKindBillingIssueDetected, true
		}
		return models.EventKindBillingIssueDetected, true
	case "REFUND", "REVOKE":
		return models.EventKindRefund, true
	case "DID_CHANGE_RENEWAL_STATUS":
		if subtype == "AUTO_RENEW_DISABLED" {
			return models.EventKindCancellation, true
		}
		return "", false
	case "DID_CHANGE_RENEWAL_PREF":
		if subtype == "UPGRADE" || subtype == "DOWNGRADE" {
			return models.EventKindProductChange, true
		}
		return "", false
	default:
		return "", false
	}
}

func storeError(context string, err error) error {
	return fmt.Errorf("%s: %w", context, err)
}
