package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"aiplaylist/internal/infrastructure/cache"
)

type fakeAuthenticator struct {
	exchangeToken  *oauth2.Token
	exchangeErr    error
	refreshedToken *oauth2.Token
	refreshErr     error

	exchangeCalls int
	refreshCalls  int
	lastCode      string
}

func (f *fakeAuthenticator) AuthURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (f *fakeAuthenticator) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.exchangeCalls++
	f.lastCode = code
	return f.exchangeToken, f.exchangeErr
}

func (f *fakeAuthenticator) RefreshToken(_ context.Context, _ *oauth2.Token) (*oauth2.Token, error) {
	f.refreshCalls++
	return f.refreshedToken, f.refreshErr
}

func newTestManager(authenticator Authenticator) *Manager {
	m := NewManager(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
	}, cache.NewStore(time.Minute, zap.NewNop()), zap.NewNop())
	if authenticator != nil {
		m.SetAuthenticator(authenticator)
	}
	return m
}

func TestSessionRoundTrip(t *testing.T) {
	m := newTestManager(nil)

	session := m.CreateSession()
	require.NotEmpty(t, session.ID)

	loaded, ok := m.Session(session.ID)
	require.True(t, ok)
	assert.Same(t, session, loaded)

	m.Delete(session.ID)
	_, ok = m.Session(session.ID)
	assert.False(t, ok)

	_, ok = m.Session("")
	assert.False(t, ok)
}

func TestBeginLoginStoresState(t *testing.T) {
	fake := &fakeAuthenticator{}
	m := newTestManager(fake)
	session := m.CreateSession()

	url := m.BeginLogin(session)

	require.NotEmpty(t, session.State)
	assert.Contains(t, url, session.State)
}

func TestCompleteLoginRejectsStateMismatch(t *testing.T) {
	fake := &fakeAuthenticator{}
	m := newTestManager(fake)
	session := m.CreateSession()
	m.BeginLogin(session)

	err := m.CompleteLogin(context.Background(), session, "forged-state", "code")

	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Zero(t, fake.exchangeCalls)

	// Сессия без выданного state тоже отклоняется
	fresh := m.CreateSession()
	err = m.CompleteLogin(context.Background(), fresh, "", "code")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestCompleteLoginExchangesCode(t *testing.T) {
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}
	fake := &fakeAuthenticator{exchangeToken: token}
	m := newTestManager(fake)
	session := m.CreateSession()
	m.BeginLogin(session)
	state := session.State

	err := m.CompleteLogin(context.Background(), session, state, "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "auth-code", fake.lastCode)
	assert.Empty(t, session.State)
	assert.True(t, session.Authenticated())

	// Повторный callback с тем же state отклоняется
	err = m.CompleteLogin(context.Background(), session, state, "auth-code")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestCompleteLoginExchangeFailure(t *testing.T) {
	fake := &fakeAuthenticator{exchangeErr: errors.New("spotify unavailable")}
	m := newTestManager(fake)
	session := m.CreateSession()
	m.BeginLogin(session)

	err := m.CompleteLogin(context.Background(), session, session.State, "auth-code")

	require.Error(t, err)
	assert.False(t, session.Authenticated())
	assert.Empty(t, session.State)
}

func TestAccessTokenValidToken(t *testing.T) {
	fake := &fakeAuthenticator{}
	m := newTestManager(fake)
	session := m.CreateSession()
	session.Token = &oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}

	token, err := m.AccessToken(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, "access", token)
	assert.Zero(t, fake.refreshCalls)
}

func TestAccessTokenRefreshesExpired(t *testing.T) {
	fake := &fakeAuthenticator{
		refreshedToken: &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)},
	}
	m := newTestManager(fake)
	session := m.CreateSession()
	session.Token = &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Minute)}

	token, err := m.AccessToken(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, 1, fake.refreshCalls)
	assert.Equal(t, "fresh", session.Token.AccessToken)
}

func TestAccessTokenRefreshFailure(t *testing.T) {
	fake := &fakeAuthenticator{refreshErr: errors.New("refresh rejected")}
	m := newTestManager(fake)
	session := m.CreateSession()
	session.Token = &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Minute)}

	_, err := m.AccessToken(context.Background(), session)

	assert.Error(t, err)
}

func TestAccessTokenWithoutToken(t *testing.T) {
	m := newTestManager(&fakeAuthenticator{})
	session := m.CreateSession()

	_, err := m.AccessToken(context.Background(), session)

	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutClearsCredentials(t *testing.T) {
	m := newTestManager(&fakeAuthenticator{})
	session := m.CreateSession()
	session.Token = &oauth2.Token{AccessToken: "access"}
	m.AttachProfile(session, "spotify-user", "Listener")

	m.Logout(session)

	assert.False(t, session.Authenticated())
	assert.Empty(t, session.SpotifyUserID)
	assert.Empty(t, session.DisplayName)

	// Сама сессия переживает выход
	_, ok := m.Session(session.ID)
	assert.True(t, ok)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, tokenExpired(&oauth2.Token{}, now))
	assert.False(t, tokenExpired(&oauth2.Token{Expiry: now.Add(time.Hour)}, now))
	// Запас в минуту срабатывает до фактического истечения
	assert.True(t, tokenExpired(&oauth2.Token{Expiry: now.Add(30 * time.Second)}, now))
	assert.True(t, tokenExpired(&oauth2.Token{Expiry: now.Add(-time.Minute)}, now))
}
