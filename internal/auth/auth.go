// Package auth реализует вход через Spotify OAuth и cookie-сессии поверх
// общего TTL-кэша.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"aiplaylist/internal/infrastructure/cache"
)

// CookieName имя cookie с идентификатором сессии
const CookieName = "aiplaylist_session"

// tokenExpiryLeeway запас до фактического истечения токена, после которого
// токен считается просроченным и обновляется заранее
const tokenExpiryLeeway = time.Minute

// defaultSessionTTL срок жизни сессии по умолчанию
const defaultSessionTTL = 24 * time.Hour

const sessionKeyPrefix = "auth:session:"

// Ошибки, транслируемые обработчиками в HTTP-статусы
var (
	ErrStateMismatch    = errors.New("oauth state mismatch")
	ErrNotAuthenticated = errors.New("session has no spotify token")
)

// Session представляет сессию пользователя с токеном Spotify
type Session struct {
	ID            string
	State         string
	Token         *oauth2.Token
	SpotifyUserID string
	DisplayName   string
}

// Authenticated сообщает, хранит ли сессия токен доступа
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != nil && s.Token.AccessToken != ""
}

// Authenticator определяет границу OAuth-провайдера
type Authenticator interface {
	// AuthURL возвращает URL страницы авторизации Spotify
	AuthURL(state string) string
	// Exchange обменивает код авторизации на токен
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// RefreshToken обновляет просроченный токен
	RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// spotifyAuthenticator оборачивает аутентификатор библиотеки Spotify
type spotifyAuthenticator struct {
	inner *spotifyauth.Authenticator
}

func (a *spotifyAuthenticator) AuthURL(state string) string {
	return a.inner.AuthURL(state)
}

func (a *spotifyAuthenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return a.inner.Exchange(ctx, code)
}

func (a *spotifyAuthenticator) RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return a.inner.RefreshToken(ctx, token)
}

// Config задает параметры OAuth-приложения Spotify
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	SessionTTL   time.Duration
}

// Manager представляет менеджер сессий и OAuth-цикла
type Manager struct {
	authenticator Authenticator
	store         cache.Cache
	ttl           time.Duration
	logger        *zap.Logger
}

// NewManager создает менеджер аутентификации
func NewManager(config Config, store cache.Cache, logger *zap.Logger) *Manager {
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	authenticator := spotifyauth.New(
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserTopRead,
			spotifyauth.ScopeUserReadRecentlyPlayed,
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopeUserReadPrivate,
		),
	)

	return &Manager{
		authenticator: &spotifyAuthenticator{inner: authenticator},
		store:         store,
		ttl:           config.SessionTTL,
		logger:        logger,
	}
}

// SetAuthenticator заменяет OAuth-провайдера (используется в тестах)
func (m *Manager) SetAuthenticator(a Authenticator) {
	m.authenticator = a
}

// CreateSession создает и сохраняет пустую сессию
func (m *Manager) CreateSession() *Session {
	session := &Session{ID: uuid.NewString()}
	m.Save(session)
	return session
}

// Session возвращает сессию по идентификатору
func (m *Manager) Session(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	cached, ok := m.store.Get(sessionKeyPrefix + id)
	if !ok {
		return nil, false
	}
	session, valid := cached.(*Session)
	if !valid {
		return nil, false
	}
	return session, true
}

// Save сохраняет сессию, продлевая срок ее жизни
func (m *Manager) Save(session *Session) {
	if session == nil || session.ID == "" {
		return
	}
	m.store.SetWithTTL(sessionKeyPrefix+session.ID, session, m.ttl)
}

// Delete удаляет сессию целиком
func (m *Manager) Delete(id string) {
	if id == "" {
		return
	}
	m.store.Delete(sessionKeyPrefix + id)
}

// BeginLogin выдает URL авторизации Spotify и фиксирует state в сессии
// для защиты от CSRF
func (m *Manager) BeginLogin(session *Session) string {
	session.State = uuid.NewString()
	m.Save(session)
	return m.authenticator.AuthURL(session.State)
}

// CompleteLogin проверяет state, обменивает код на токен и сохраняет его
// в сессии. Использованный state сбрасывается независимо от исхода обмена.
func (m *Manager) CompleteLogin(ctx context.Context, session *Session, state, code string) error {
	if session.State == "" || state == "" || state != session.State {
		return ErrStateMismatch
	}
	session.State = ""

	token, err := m.authenticator.Exchange(ctx, code)
	if err != nil {
		m.Save(session)
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	session.Token = token
	m.Save(session)
	m.logger.Info("Spotify authorization completed", zap.String("session_id", session.ID))
	return nil
}

// AttachProfile сохраняет профиль Spotify в сессии после входа
func (m *Manager) AttachProfile(session *Session, spotifyUserID, displayName string) {
	session.SpotifyUserID = spotifyUserID
	session.DisplayName = displayName
	m.Save(session)
}

// AccessToken возвращает действующий токен доступа, обновляя его при
// приближении срока истечения
func (m *Manager) AccessToken(ctx context.Context, session *Session) (string, error) {
	if !session.Authenticated() {
		return "", ErrNotAuthenticated
	}

	if tokenExpired(session.Token, time.Now()) {
		refreshed, err := m.authenticator.RefreshToken(ctx, session.Token)
		if err != nil {
			return "", fmt.Errorf("failed to refresh spotify token: %w", err)
		}
		session.Token = refreshed
		m.Save(session)
		m.logger.Info("Spotify token refreshed", zap.String("session_id", session.ID))
	}

	return session.Token.AccessToken, nil
}

// Logout сбрасывает токен и профиль, сохраняя саму сессию
func (m *Manager) Logout(session *Session) {
	session.Token = nil
	session.SpotifyUserID = ""
	session.DisplayName = ""
	session.State = ""
	m.Save(session)
}

// tokenExpired проверяет истечение токена с запасом. Токен без срока
// считается бессрочным.
func tokenExpired(token *oauth2.Token, now time.Time) bool {
	if token.Expiry.IsZero() {
		return false
	}
	return now.After(token.Expiry.Add(-tokenExpiryLeeway))
}
