package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/anonimouzmkt/calendar-server/internal/client/calendar"
	"github.com/anonimouzmkt/calendar-server/internal/models"
	"github.com/anonimouzmkt/calendar-server/internal/repository"
)

const defaultRefreshSkew = 5 * time.Minute

// TokenRefresher performs the refresh-grant exchange against the provider's
// token endpoint.
type TokenRefresher interface {
	Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (calendar.TokenGrant, error)
}

// TokenManager hands out a valid bearer token per integration, refreshing
// proactively when expiry is inside the skew margin and persisting rotated
// credentials before returning.
type TokenManager struct {
	Store     repository.Store
	Refresher TokenRefresher
	Retry     *Executor
	Skew      time.Duration
	Logger    *zap.Logger

	now func() time.Time
}

func NewTokenManager(store repository.Store, refresher TokenRefresher, retry *Executor, skew time.Duration, logger *zap.Logger) *TokenManager {
	if skew <= 0 {
		skew = defaultRefreshSkew
	}
	return &TokenManager{
		Store:     store,
		Refresher: refresher,
		Retry:     retry,
		Skew:      skew,
		Logger:    logger,
		now:       time.Now,
	}
}

// EnsureValid returns a bearer token good for at least the skew margin.
// On refresh it updates the integration in place so the caller keeps
// working with current credentials.
func (m *TokenManager) EnsureValid(ctx context.Context, integ *models.Integration) (string, error) {
	now := m.clock()
	if integ.AccessToken != "" && integ.TokenExpiresAt != nil && integ.TokenExpiresAt.Sub(now) > m.skew() {
		return integ.AccessToken, nil
	}

	if integ.RefreshToken == nil || *integ.RefreshToken == "" {
		return "", &AuthError{Reason: "no refresh token on integration " + integ.ID}
	}

	var grant calendar.TokenGrant
	err := m.Retry.Execute(ctx, "token.refresh", func(ctx context.Context) error {
		g, err := m.Refresher.Refresh(ctx, integ.ClientID, integ.ClientSecret, *integ.RefreshToken)
		if err != nil {
			return err
		}
		grant = g
		return nil
	})
	if err != nil {
		if Classify(err) == ClassTerminal {
			return "", &AuthError{Reason: "refresh grant rejected", Err: err}
		}
		return "", err
	}

	if err := m.Store.UpdateIntegrationTokens(ctx, integ.ID, grant.AccessToken, grant.RefreshToken, grant.ExpiresAt); err != nil {
		return "", &StoreError{Op: "update integration tokens", Err: err}
	}

	integ.AccessToken = grant.AccessToken
	refresh := grant.RefreshToken
	integ.RefreshToken = &refresh
	expires := grant.ExpiresAt
	integ.TokenExpiresAt = &expires

	if m.Logger != nil {
		m.Logger.Info("access token refreshed",
			zap.String("integration_id", integ.ID),
			zap.Time("expires_at", grant.ExpiresAt),
		)
	}
	return grant.AccessToken, nil
}

func (m *TokenManager) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m *TokenManager) skew() time.Duration {
	if m.Skew > 0 {
		return m.Skew
	}
	return defaultRefreshSkew
}
