package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"opencat/pkg/errs"
	"opencat/pkg/models"
	"opencat/pkg/repositories"
	"opencat/pkg/stores"
	"opencat/pkg/utils"

	"github.com/google/uuid"
)

// APIKeyService issues, revokes, and authenticates API keys.
type APIKeyService struct {
	repos *repositories.RepositoriesCollection
	cache *stores.APIKeyCache
}

func NewAPIKeyService(repos *repositories.RepositoriesCollection, cache *stores.APIKeyCache) *APIKeyService {
	return &APIKeyService{repos: repos, cache: cache}
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssuedKey carries the plaintext secret, returned to the caller exactly
// once at creation time; only its hash is ever persisted.
type IssuedKey struct {
	Key    *models.APIKey
	Secret string
}

func (s *APIKeyService) Issue(ctx context.Context, appID uint, permission string) (*IssuedKey, error) {
	if _, err := s.repos.App.GetByID(ctx, appID); err != nil {
		return nil, errs.NewNotFoundError("app not found")
	}
	if permission == "" {
		permission = models.APIKeyPermissionFull
	}

	secret, err := utils.GenerateRandomString(48)
	if err != nil {
		return nil, errs.NewInternalError("failed to generate api key")
	}

	key := &models.APIKey{
		PublicID:   uuid.NewString(),
		AppID:      appID,
		KeyHash:    hashKey(secret),
		Prefix:     secret[:8],
		Permission: permission,
	}
	if err := s.repos.APIKey.Create(ctx, key); err != nil {
		return nil, errs.NewInternalError("failed to persist api key")
	}

	return &IssuedKey{Key: key, Secret: secret}, nil
}

func (s *APIKeyService) ListByApp(ctx context.Context, appID uint) ([]models.APIKey, error) {
	return s.repos.APIKey.ListByApp(ctx, appID)
}

// Revoke scopes the key to the requesting app so App X can never revoke
// App Y's key, and invalidates any cached lookup immediately so the
// revocation is honored on the very next request.
func (s *APIKeyService) Revoke(ctx context.Context, appID uint, publicID string) error {
	target, err := s.repos.APIKey.GetByPublicID(ctx, appID, publicID)
	if err != nil {
		return errs.NewNotFoundError("api key not found")
	}

	if err := s.repos.APIKey.Revoke(ctx, target.ID, time.Now().UTC()); err != nil {
		return errs.NewInternalError("failed to revoke api key")
	}
	s.cache.Invalidate(target.KeyHash)
	return nil
}

// Authenticate resolves the App a bearer key authenticates, consulting the
// short-TTL cache before Postgres. Revoked and unknown
// keys are indistinguishable to the caller by design.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*models.App, error) {
	hash := hashKey(rawKey)

	if appID, ok := s.cache.Get(hash); ok {
		app, err := s.repos.App.GetByID(ctx, appID)
		if err == nil {
			return app, nil
		}
	}

	key, err := s.repos.APIKey.GetActiveByHash(ctx, hash)
	if err != nil {
		return nil, errs.NewUnauthorizedError("invalid or revoked api key")
	}

	app, err := s.repos.App.GetByID(ctx, key.AppID)
	if err != nil {
		return nil, errs.NewUnauthorizedError("invalid or revoked api key")
	}

	s.cache.Set(hash, app.ID)
	return app, nil
}
