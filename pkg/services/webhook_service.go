package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"opencat/pkg/errs"
	"opencat/pkg/models"
	"opencat/pkg/repositories"
	"opencat/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookService owns endpoint registration, the event-append-time
// fan-out into pending deliveries, the event polling read path, and manual
// redelivery.
type WebhookService struct {
	repos *repositories.RepositoriesCollection
	db    *gorm.DB
}

func NewWebhookService(repos *repositories.RepositoriesCollection, db *gorm.DB) *WebhookService {
	return &WebhookService{repos: repos, db: db}
}

// RegisterEndpoint registers a delivery target. events is an optional
// whitelist of event kinds; nil or empty subscribes the endpoint to every
// kind.
func (s *WebhookService) RegisterEndpoint(ctx context.Context, appID uint, url string, events []string) (*models.WebhookEndpoint, error) {
	if _, err := s.repos.App.GetByID(ctx, appID); err != nil {
		return nil, errs.NewNotFoundError("app not found")
	}
	for _, kind := range events {
		if !models.ValidEventKind(kind) {
			return nil, errs.NewBadRequestError("unknown event kind " + kind)
		}
	}

	secret, err := utils.GenerateRandomString(64)
	if err != nil {
		return nil, errs.NewInternalError("failed to generate webhook secret")
	}

	endpoint := &models.WebhookEndpoint{
		AppID:      appID,
		URL:        url,
		Secret:     secret,
		Active:     true,
		EventKinds: strings.Join(events, ","),
	}
	if err := s.repos.Webhook.CreateEndpoint(ctx, endpoint); err != nil {
		return nil, errs.NewInternalError("failed to register webhook endpoint")
	}
	return endpoint, nil
}

// EndpointView pairs a registered endpoint with its recent deliveries.
type EndpointView struct {
	Endpoint   models.WebhookEndpoint   `json:"endpoint"`
	Deliveries []models.WebhookDelivery `json:"deliveries"`
}

func (s *WebhookService) ListEndpoints(ctx context.Context, appID uint) ([]EndpointView, error) {
	endpoints, err := s.repos.Webhook.ListEndpointsByApp(ctx, appID)
	if err != nil {
		return nil, errs.NewInternalError("failed to list webhook endpoints")
	}

	deliveries, err := s.repos.Webhook.ListDeliveriesByApp(ctx, appID)
	if err != nil {
		return nil, errs.NewInternalError("failed to list webhook deliveries")
	}
	byEndpoint := make(map[uint][]models.WebhookDelivery, len(endpoints))
	for _, d := range deliveries {
		byEndpoint[d.EndpointID] = append(byEndpoint[d.EndpointID], d)
	}

	views := make([]EndpointView, 0, len(endpoints))
	for _, e := range endpoints {
		views = append(views, EndpointView{Endpoint: e, Deliveries: byEndpoint[e.ID]})
	}
	return views, nil
}

func (s *WebhookService) ListEvents(ctx context.Context, appID uint, since uint, limit int) ([]models.Event, error) {
	return s.repos.Event.ListByAppSince(ctx, appID, since, limit)
}

// Redeliver resets a delivery back to pending for an immediate retry,
// scoped to the requesting app so App X can never touch App Y's delivery
// rows.
func (s *WebhookService) Redeliver(ctx context.Context, appID uint, deliveryID uint) error {
	delivery, err := s.repos.Webhook.GetDelivery(ctx, deliveryID)
	if err != nil {
		return errs.NewNotFoundError("delivery not found")
	}
	if delivery.Endpoint.AppID != appID {
		return errs.NewNotFoundError("delivery not found")
	}
	if err := s.repos.Webhook.Redeliver(ctx, deliveryID); err != nil {
		return errs.NewInternalError("failed to schedule redelivery")
	}
	return nil
}

// AppendEvent writes the immutable Event row and fans it out into one
// pending Delivery per active endpoint of the owning app whose event filter
// accepts kind, all inside tx.
// The public event_id is a UUID minted before the insert, so the payload
// is written
// once and never touched again afterward.
func (s *WebhookService) AppendEvent(ctx context.Context, tx *gorm.DB, appID, subscriberID uint, kind string, sub models.SubscriberView, prod models.ProductView, txn models.TransactionView, store string) (*models.Event, error) {
	now := time.Now().UTC()
	uid := uuid.NewString()

	payload := models.EventPayload{
		EventID:     uid,
		Type:        kind,
		Subscriber:  sub,
		Product:     prod,
		Transaction: txn,
		Store:       store,
		Timestamp:   now,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	event := &models.Event{UID: uid, SubscriberID: subscriberID, Kind: kind, Payload: string(body)}
	if err := s.repos.Event.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	endpoints, err := s.repos.Webhook.ActiveEndpointsByApp(ctx, tx, appID)
	if err != nil {
		return nil, err
	}
	for _, endpoint := range endpoints {
		if !endpoint.ReceivesKind(kind) {
			continue
		}
		delivery := &models.WebhookDelivery{
			EndpointID:  endpoint.ID,
			EventID:     event.ID,
			Status:      models.DeliveryStatusPending,
			NextRetryAt: now,
		}
		if err := s.repos.Webhook.CreateDelivery(ctx, tx, delivery); err != nil {
			return nil, err
		}
	}

	return event, nil
}
