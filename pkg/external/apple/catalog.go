package apple

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"opencat/pkg/models"
)

const catalogBaseURL = "https://api.appstoreconnect.apple.com/v1"

// periodToISO8601 translates Apple's subscriptionPeriod vocabulary to the
// ISO-8601 durations the Product model stores. The mapping
// is a closed, bijective table.
var periodToISO8601 = map[string]string{
	"ONE_WEEK":     "P1W",
	"ONE_MONTH":    "P1M",
	"TWO_MONTHS":   "P2M",
	"THREE_MONTHS": "P3M",
	"SIX_MONTHS":   "P6M",
	"ONE_YEAR":     "P1Y",
}

var introOfferDurationToISO8601 = map[string]string{
	"ONE_WEEK":     "P1W",
	"TWO_WEEKS":    "P2W",
	"ONE_MONTH":    "P1M",
	"TWO_MONTHS":   "P2M",
	"THREE_MONTHS": "P3M",
	"SIX_MONTHS":   "P6M",
	"ONE_YEAR":     "P1Y",
}

// TranslatePeriod converts Apple's enumerated period vocabulary to its
// ISO-8601 duration. Unknown values are returned unmodified so the sync
// operation never fails outright on a new vocabulary entry Apple adds.
func TranslatePeriod(applePeriod string) string {
	if iso, ok := periodToISO8601[applePeriod]; ok {
		return iso
	}
	if iso, ok := introOfferDurationToISO8601[applePeriod]; ok {
		return iso
	}
	return applePeriod
}

// PriceMicros rounds a decimal customer price to integer micro-units:
// round(A × 1_000_000).
func PriceMicros(decimalPrice string) (int64, error) {
	f, err := strconv.ParseFloat(decimalPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", decimalPrice, err)
	}
	return int64(math.Round(f * 1_000_000)), nil
}

// catalogSubscriptionGroup mirrors the subset of the App Store Connect
// Catalog API response this sync reads: subscription groups, their
// subscriptions, localizations, price points, and introductory offers.
type catalogSubscriptionGroup struct {
	Subscriptions []catalogSubscription `json:"subscriptions"`
}

type catalogSubscription struct {
	ProductID          string                  `json:"productId"`
	SubscriptionPeriod string                  `json:"subscriptionPeriod"`
	Localizations      []catalogLocalization   `json:"localizations"`
	PricePoints        []catalogPricePoint     `json:"pricePoints"`
	IntroductoryOffers []catalogIntroOffer     `json:"introductoryOffers"`
}

type catalogLocalization struct {
	Locale      string `json:"locale"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type catalogPricePoint struct {
	CustomerPrice string `json:"customerPrice"`
	Currency      string `json:"currency"`
}

type catalogIntroOffer struct {
	Duration string `json:"duration"`
	Mode     string `json:"mode"` // freeTrial | payAsYouGo | payUpFront
}

type catalogInAppPurchase struct {
	ProductID     string                `json:"productId"`
	Localizations []catalogLocalization `json:"localizations"`
	PricePoints   []catalogPricePoint   `json:"pricePoints"`
}

// SyncedProduct is one normalized row the catalog sync produces, ready to
// be upserted by repositories.ProductRepository.UpsertFromCatalog.
type SyncedProduct struct {
	StoreProductID     string
	ProductType        string
	DisplayName        string
	Description        string
	PriceMicros        int64
	Currency           string
	SubscriptionPeriod string
	TrialPeriod        string
}

// SyncCatalog fetches subscription groups and non-subscription in-app
// purchases for the adapter's bundle id and normalizes them.
func (a *Adapter) SyncCatalog(ctx context.Context) ([]SyncedProduct, error) {
	token, err := a.authToken(maxCatalogTokenTTL)
	if err != nil {
		return nil, storeError("apple catalog auth", err)
	}

	appID, err := a.lookupAppID(ctx, token)
	if err != nil {
		return nil, err
	}

	groups, err := a.fetchSubscriptionGroups(ctx, token, appID)
	if err != nil {
		return nil, err
	}

	inApps, err := a.fetchInAppPurchases(ctx, token, appID)
	if err != nil {
		return nil, err
	}

	var out []SyncedProduct
	for _, group := range groups {
		for _, sub := range group.Subscriptions {
			out = append(out, normalizeSubscription(sub))
		}
	}
	for _, iap := range inApps {
		out = append(out, normalizeInAppPurchase(iap))
	}
	return out, nil
}

func (a *Adapter) lookupAppID(ctx context.Context, token string) (string, error) {
	url := fmt.Sprintf("%s/apps?filter[bundleId]=%s", catalogBaseURL, a.creds.BundleID)
	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := a.catalogGet(ctx, token, url, &result); err != nil {
		return "", err
	}
	if len(result.Data) == 0 {
		return "", storeError("apple catalog", fmt.Errorf("no app found for bundle id %q", a.creds.BundleID))
	}
	return result.Data[0].ID, nil
}

func (a *Adapter) fetchSubscriptionGroups(ctx context.Context, token, appID string) ([]catalogSubscriptionGroup, error) {
	url := fmt.Sprintf("%s/apps/%s/subscriptionGroups?include=subscriptions,subscriptions.subscriptionLocalizations,subscriptions.prices,subscriptions.introductoryOffers", catalogBaseURL, appID)
	var result struct {
		Data []catalogSubscriptionGroup `json:"data"`
	}
	if err := a.catalogGet(ctx, token, url, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (a *Adapter) fetchInAppPurchases(ctx context.Context, token, appID string) ([]catalogInAppPurchase, error) {
	url := fmt.Sprintf("%s/apps/%s/inAppPurchasesV2?include=inAppPurchaseLocalizations,prices", catalogBaseURL, appID)
	var result struct {
		Data []catalogInAppPurchase `json:"data"`
	}
	if err := a.catalogGet(ctx, token, url, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (a *Adapter) catalogGet(ctx context.Context, token, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return storeError("apple catalog request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.breaker.Execute(func() (*http.Response, error) {
		return a.httpClient.Do(req)
	})
	if err != nil {
		return storeError("apple catalog request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return storeError("apple catalog response read", err)
	}
	if resp.StatusCode != http.StatusOK {
		return storeError("apple catalog request", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	return json.Unmarshal(body, out)
}

// preferredLocalization picks en-US, falling back to the first entry,
// preferring en-US, else the first entry.
func preferredLocalization(locs []catalogLocalization) catalogLocalization {
	for _, l := range locs {
		if l.Locale == "en-US" {
			return l
		}
	}
	if len(locs) > 0 {
		return locs[0]
	}
	return catalogLocalization{}
}

func normalizeSubscription(sub catalogSubscription) SyncedProduct {
	loc := preferredLocalization(sub.Localizations)
	sp := SyncedProduct{
		StoreProductID:     sub.ProductID,
		ProductType:        models.ProductKindSubscription,
		DisplayName:        loc.Name,
		Description:        loc.Description,
		SubscriptionPeriod: TranslatePeriod(sub.SubscriptionPeriod),
	}
	if len(sub.PricePoints) > 0 {
		if micros, err := PriceMicros(sub.PricePoints[0].CustomerPrice); err == nil {
			sp.PriceMicros = micros
		}
		sp.Currency = sub.PricePoints[0].Currency
	}
	if len(sub.IntroductoryOffers) > 0 {
		sp.TrialPeriod = TranslatePeriod(sub.IntroductoryOffers[0].Duration)
	}
	return sp
}

func normalizeInAppPurchase(iap catalogInAppPurchase) SyncedProduct {
	loc := preferredLocalization(iap.Localizations)
	sp := SyncedProduct{
		StoreProductID: iap.ProductID,
		ProductType:    models.ProductKindNonConsumable,
		DisplayName:    loc.Name,
		Description:    loc.Description,
	}
	if len(iap.PricePoints) > 0 {
		if micros, err := PriceMicros(iap.PricePoints[0].CustomerPrice); err == nil {
			sp.PriceMicros = micros
		}
		sp.Currency = iap.PricePoints[0].Currency
	}
	return sp
}
