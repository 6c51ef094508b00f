package workers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"opencat/pkg/models"
	"opencat/pkg/repositories"

	"github.com/sony/gobreaker/v2"
)

// retrySchedule is the fixed backoff between delivery attempts; index i is
// the delay before attempt i+2.
var retrySchedule = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	1 * time.Hour,
}

// deadLetterAfter is the elapsed time since a delivery's first attempt past
// which it stops retrying and is marked dead-lettered.
const deadLetterAfter = 24 * time.Hour

type WebhookWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// WebhookWorker polls for due deliveries and POSTs each signed event
// payload to its endpoint, applying the fixed retry schedule and 24-hour
// dead-letter cutoff.
type WebhookWorker struct {
	repo     *repositories.WebhookRepository
	client   *http.Client
	config   WebhookWorkerConfig
	breakers sync.Map // endpoint id -> *gobreaker.CircuitBreaker[*http.Response]

	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewWebhookWorker(repo *repositories.WebhookRepository, config WebhookWorkerConfig) *WebhookWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}

	return &WebhookWorker{
		repo:   repo,
		client: &http.Client{Timeout: 10 * time.Second},
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// breakerFor returns the per-endpoint circuit breaker, creating it on first
// use, so one customer's dead endpoint trips open without throttling
// delivery to every other endpoint.
func (w *WebhookWorker) breakerFor(endpointID uint) *gobreaker.CircuitBreaker[*http.Response] {
	if existing, ok := w.breakers.Load(endpointID); ok {
		return existing.(*gobreaker.CircuitBreaker[*http.Response])
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    fmt.Sprintf("webhook-endpoint-%d", endpointID),
		Timeout: 30 * time.Second,
	})
	actual, _ := w.breakers.LoadOrStore(endpointID, breaker)
	return actual.(*gobreaker.CircuitBreaker[*http.Response])
}

func (w *WebhookWorker) Start() {
	w.startOnce.Do(func() {
		go w.loop()
		slog.Info("Webhook worker started", "poll_interval", w.config.PollInterval.String(), "batch_size", w.config.BatchSize)
	})
}

func (w *WebhookWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		slog.Info("Webhook worker stopped")
	})
}

func (w *WebhookWorker) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.runCycle()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runCycle()
		}
	}
}

func (w *WebhookWorker) runCycle() {
	ctx := context.Background()

	deliveries, err := w.repo.ClaimDue(ctx, w.config.BatchSize)
	if err != nil {
		slog.Error("Webhook worker failed to claim deliveries", "error", err)
		return
	}

	for i := range deliveries {
		w.attempt(ctx, &deliveries[i])
	}
}

func (w *WebhookWorker) attempt(ctx context.Context, d *models.WebhookDelivery) {
	now := time.Now().UTC()

	body := []byte(d.Event.Payload)
	signature := sign(d.Endpoint.Secret, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint.URL, bytes.NewReader(body))
	if err != nil {
		w.fail(ctx, d, now, fmt.Sprintf("build request: %v", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OpenCat-Signature", signature)

	breaker := w.breakerFor(d.EndpointID)
	resp, err := breaker.Execute(func() (*http.Response, error) {
		return w.client.Do(req)
	})
	if err != nil {
		w.fail(ctx, d, now, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		firstAttemptAt := d.FirstAttemptAt
		if firstAttemptAt == nil {
			firstAttemptAt = &now
		}
		if err := w.repo.MarkDelivered(ctx, d.ID, d.Attempts+1, now, firstAttemptAt); err != nil {
			slog.Error("Webhook worker failed to mark delivery delivered", "delivery_id", d.ID, "error", err)
		}
		return
	}

	w.fail(ctx, d, now, fmt.Sprintf("endpoint returned status %d", resp.StatusCode))
}

func (w *WebhookWorker) fail(ctx context.Context, d *models.WebhookDelivery, attemptedAt time.Time, lastError string) {
	attempts := d.Attempts + 1

	firstAttemptAt := d.FirstAttemptAt
	if firstAttemptAt == nil {
		firstAttemptAt = &attemptedAt
	}

	if isDeadLetter(attemptedAt, *firstAttemptAt) {
		if err := w.repo.MarkDeadLetter(ctx, d.ID, attempts, lastError, attemptedAt); err != nil {
			slog.Error("Webhook worker failed to mark delivery dead-lettered", "delivery_id", d.ID, "error", err)
		}
		slog.Error("Webhook delivery dead-lettered", "delivery_id", d.ID, "endpoint_id", d.EndpointID, "attempts", attempts, "error", lastError)
		return
	}

	nextRetryAt := attemptedAt.Add(retryDelayForAttempt(attempts))

	if err := w.repo.MarkRetry(ctx, d.ID, attempts, lastError, attemptedAt, nextRetryAt, firstAttemptAt); err != nil {
		slog.Error("Webhook worker failed to schedule delivery retry", "delivery_id", d.ID, "error", err)
		return
	}
	slog.Warn("Webhook delivery scheduled for retry", "delivery_id", d.ID, "attempts", attempts, "next_retry_at", nextRetryAt, "error", lastError)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// isDeadLetter reports whether a delivery has been outstanding long enough
// since its first attempt to stop retrying.
func isDeadLetter(attemptedAt, firstAttemptAt time.Time) bool {
	return attemptedAt.Sub(firstAttemptAt) >= deadLetterAfter
}

// retryDelayForAttempt returns the backoff before the next attempt given the
// attempt count just recorded. attempts is 1-indexed; the delay before the
// 2nd attempt is retrySchedule[0], and any attempt past the schedule's length
// reuses its last entry.
func retryDelayForAttempt(attempts int) time.Duration {
	if attempts-1 < len(retrySchedule) {
		return retrySchedule[attempts-1]
	}
	return retrySchedule[len(retrySchedule)-1]
}
