package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoebe/phoebe/internal/model"
)

func setupCacheTest(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := New(context.Background(), "redis://"+mr.Addr(), Config{
		PrincipalTTL: time.Minute,
		HomepageTTL:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "not a url", Config{})
	assert.Error(t, err)
}

func TestNewWithClient_DefaultTTLs(t *testing.T) {
	c := NewWithClient(nil, Config{})
	assert.Equal(t, DefaultPrincipalTTL, c.principalTTL)
	assert.Equal(t, DefaultHomepageTTL, c.homepageTTL)
}

func TestPrincipal_RoundTripAndExpiry(t *testing.T) {
	c, mr := setupCacheTest(t)
	ctx := context.Background()

	miss, err := c.GetPrincipal(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	p := &model.Principal{
		UserID:      "u1",
		Username:    "alice",
		Roles:       []string{model.RoleEditor},
		Permissions: []string{"news:read"},
		AuthMethod:  model.AuthMethodBasic,
	}
	require.NoError(t, c.SetPrincipal(ctx, p))

	got, err := c.GetPrincipal(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []string{model.RoleEditor}, got.Roles)
	assert.Empty(t, got.AuthMethod, "auth method is per request")

	mr.FastForward(2 * time.Minute)
	got, err = c.GetPrincipal(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrincipal_CorruptedEntryIsMiss(t *testing.T) {
	c, mr := setupCacheTest(t)
	require.NoError(t, mr.Set(principalPrefix+"u1", "{not json"))

	got, err := c.GetPrincipal(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetPrincipal_IgnoresNil(t *testing.T) {
	c, mr := setupCacheTest(t)
	require.NoError(t, c.SetPrincipal(context.Background(), nil))
	assert.Empty(t, mr.Keys())
}

func TestDeletePrincipal_DropsCredentials(t *testing.T) {
	c, mr := setupCacheTest(t)
	ctx := context.Background()

	require.NoError(t, c.SetPrincipal(ctx, &model.Principal{UserID: "u1", Username: "alice"}))
	require.NoError(t, c.SetCredentialUser(ctx, "digest-a", "u1"))
	require.NoError(t, c.SetCredentialUser(ctx, "digest-b", "u1"))
	require.NoError(t, c.SetCredentialUser(ctx, "digest-c", "u2"))

	id, err := c.GetCredentialUser(ctx, "digest-a")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	require.NoError(t, c.DeletePrincipal(ctx, "u1"))

	for _, d := range []string{"digest-a", "digest-b"} {
		id, err := c.GetCredentialUser(ctx, d)
		require.NoError(t, err)
		assert.Empty(t, id, d)
	}
	id, err = c.GetCredentialUser(ctx, "digest-c")
	require.NoError(t, err)
	assert.Equal(t, "u2", id)

	assert.False(t, mr.Exists(principalPrefix+"u1"))
}

func TestDeletePrincipal_Missing(t *testing.T) {
	c, _ := setupCacheTest(t)
	assert.NoError(t, c.DeletePrincipal(context.Background(), "nobody"))
}

func TestHomepage_SetGetInvalidate(t *testing.T) {
	c, mr := setupCacheTest(t)
	ctx := context.Background()

	data, err := c.GetHomepage(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, c.SetHomepage(ctx, []byte(`{"mode":"SIMPLE"}`)))
	data, err = c.GetHomepage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"SIMPLE"}`, string(data))
	assert.Equal(t, 10*time.Second, mr.TTL(homepageKey))

	require.NoError(t, c.InvalidateHomepage(ctx))
	data, err = c.GetHomepage(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCache_PingAndClosedClient(t *testing.T) {
	c, mr := setupCacheTest(t)
	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
	_, err := c.GetPrincipal(context.Background(), "u1")
	assert.Error(t, err)
}
