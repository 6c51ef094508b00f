package google

import (
	"testing"

	"opencat/pkg/models"
)

func TestGoogleEventKind(t *testing.T) {
	cases := []struct {
		name     string
		input    int
		wantKind string
		wantOK   bool
	}{
		{"purchased", notifSubscriptionPurchased, models.EventKindInitialPurchase, true},
		{"renewed", notifSubscriptionRenewed, models.EventKindRenewal, true},
		{"restarted", notifSubscriptionRestarted, models.EventKindRenewal, true},
		{"canceled", notifSubscriptionCanceled, models.EventKindCancellation, true},
		{"expired", notifSubscriptionExpired, models.EventKindExpiration, true},
		{"revoked", notifSubscriptionRevoked, models.EventKindRefund, true},
		{"on hold", notifSubscriptionOnHold, models.EventKindBillingIssueDetected, true},
		{"in grace period", notifSubscriptionInGrace, models.EventKindBillingIssueDetected, true},
		{"recovered", notifSubscriptionRecovered, models.EventKindBillingIssueResolved, true},
		{"unknown vocabulary entry", 999, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := googleEventKind(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("googleEventKind(%d) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if kind != tc.wantKind {
				t.Errorf("googleEventKind(%d) = %q, want %q", tc.input, kind, tc.wantKind)
			}
		})
	}
}
