package services

import (
	"context"
	"net/http"
	"testing"

	"opencat/pkg/models"

	"github.com/stretchr/testify/require"
)

func TestIssueAPIKeyPersistsOnlyTheHash(t *testing.T) {
	env := newServiceTestEnv(t, &fakeAdapter{})
	app, _, _ := seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	issued, err := env.svc.APIKey.Issue(ctx, app.ID, "")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Secret)
	require.Equal(t, issued.Secret[:8], issued.Key.Prefix)
	require.Equal(t, models.APIKeyPermissionFull, issued.Key.Permission)
	require.NotEmpty(t, issued.Key.PublicID)

	var stored models.APIKey
	require.NoError(t, env.db.First(&stored, issued.Key.ID).Error)
	require.Equal(t, hashKey(issued.Secret), stored.KeyHash)
	require.NotEqual(t, issued.Secret, stored.KeyHash)
}

func TestAuthenticateResolvesOwningApp(t *testing.T) {
	env := newServiceTestEnv(t, &fakeAdapter{})
	app, _, _ := seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	issued, err := env.svc.APIKey.Issue(ctx, app.ID, "")
	require.NoError(t, err)

	got, err := env.svc.APIKey.Authenticate(ctx, issued.Secret)
	require.NoError(t, err)
	require.Equal(t, app.ID, got.ID)

	_, err = env.svc.APIKey.Authenticate(ctx, "not-a-key")
	require.Error(t, err)
}

func TestRevokedKeyStopsAuthenticating(t *testing.T) {
	env := newServiceTestEnv(t, &fakeAdapter{})
	app, _, _ := seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	issued, err := env.svc.APIKey.Issue(ctx, app.ID, "")
	require.NoError(t, err)

	require.NoError(t, env.svc.APIKey.Revoke(ctx, app.ID, issued.Key.PublicID))

	_, err = env.svc.APIKey.Authenticate(ctx, issued.Secret)
	require.Error(t, err)

	var stored models.APIKey
	require.NoError(t, env.db.First(&stored, issued.Key.ID).Error)
	require.NotNil(t, stored.RevokedAt)
}

func TestRevokeIsScopedToApp(t *testing.T) {
	env := newServiceTestEnv(t, &fakeAdapter{})
	app, _, _ := seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	other, err := env.svc.Catalog.CreateApp(ctx, "Other App", models.PlatformIOS, "com.example.other")
	require.NoError(t, err)

	issued, err := env.svc.APIKey.Issue(ctx, app.ID, "")
	require.NoError(t, err)

	err = env.svc.APIKey.Revoke(ctx, other.ID, issued.Key.PublicID)
	requireAppErrStatus(t, err, http.StatusNotFound)

	// The key still works.
	_, err = env.svc.APIKey.Authenticate(ctx, issued.Secret)
	require.NoError(t, err)
}
