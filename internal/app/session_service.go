// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"invoicegen/internal/domain"
)

var errUserFetch = errors.New("user fetch failed")

// SessionService owns the authentication state of every browser client for
// the lifetime of the process.
type SessionService struct {
	gw     domain.Gateway
	tokens domain.TokenStore
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]domain.Session
	subs     map[int]func(clientID string, s domain.Session)
	nextSub  int
}

// NewSessionService creates a session service. ttl is the persisted token
// lifetime used when the token carries no exp claim; zero keeps such tokens
// until logout.
func NewSessionService(gw domain.Gateway, tokens domain.TokenStore, ttl time.Duration, log zerolog.Logger) *SessionService {
	return &SessionService{
		gw:       gw,
		tokens:   tokens,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]domain.Session),
		subs:     make(map[int]func(string, domain.Session)),
	}
}

// Subscribe registers fn to receive every session transition. The returned
// func removes the subscription.
func (s *SessionService) Subscribe(fn func(clientID string, sess domain.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// set records sess and notifies subscribers. Sessions without a token are
// not retained; the next request restores from the token store again.
func (s *SessionService) set(clientID string, sess domain.Session) {
	s.mu.Lock()
	s.store(clientID, sess)
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, clientID, sess)
}

// settle records the result of a restore unless another transition, such as
// a Login, replaced the loading entry in the meantime. It returns the session
// that is current afterwards.
func (s *SessionService) settle(clientID string, sess domain.Session) domain.Session {
	s.mu.Lock()
	if cur, ok := s.sessions[clientID]; !ok || !cur.Loading {
		s.mu.Unlock()
		return cur
	}
	s.store(clientID, sess)
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, clientID, sess)
	return sess
}

// pending reports whether a restore still owns the client's entry.
func (s *SessionService) pending(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[clientID]
	return ok && cur.Loading
}

func (s *SessionService) store(clientID string, sess domain.Session) {
	if sess.Token == "" {
		delete(s.sessions, clientID)
		return
	}
	s.sessions[clientID] = sess
}

func (s *SessionService) subscribers() []func(string, domain.Session) {
	subs := make([]func(string, domain.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(string, domain.Session), clientID string, sess domain.Session) {
	for _, fn := range subs {
		fn(clientID, sess)
	}
}

// Snapshot returns the client's current session without restoring it.
func (s *SessionService) Snapshot(clientID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[clientID]
	return sess, ok
}

// Current returns the client's session, restoring it from the token store on
// first sight. Requests arriving while a restore is in flight see Loading.
func (s *SessionService) Current(ctx context.Context, clientID string) domain.Session {
	s.mu.Lock()
	if sess, ok := s.sessions[clientID]; ok {
		s.mu.Unlock()
		return sess
	}
	s.sessions[clientID] = domain.Session{Loading: true}
	s.mu.Unlock()

	return s.restore(ctx, clientID)
}

func (s *SessionService) restore(ctx context.Context, clientID string) domain.Session {
	log := s.log.With().Str("client", shortID(clientID)).Logger()

	token, err := s.tokens.Get(ctx, clientID)
	if err != nil {
		log.Warn().Err(err).Msg("session restore: token store unavailable")
		return s.settle(clientID, domain.Session{})
	}
	if token == "" {
		return s.settle(clientID, domain.Session{})
	}

	if exp, ok := tokenExpiry(token); ok && !exp.After(s.now()) {
		log.Info().Time("exp", exp).Msg("session restore: stored token expired")
		return s.expireRestore(ctx, clientID)
	}

	user, err := s.gw.ForClient(clientID).CurrentUser(ctx)
	switch {
	case err == nil:
		log.Debug().Str("user", user.Email).Msg("session restored")
		return s.settle(clientID, domain.Session{Token: token, User: user})
	case errors.Is(err, domain.ErrUnauthorized):
		log.Info().Err(err).Msg("session restore: stored token rejected")
		return s.expireRestore(ctx, clientID)
	default:
		// The token stays persisted; the next request tries again.
		log.Warn().Err(err).Msg("session restore: user fetch failed")
		return s.settle(clientID, domain.Session{})
	}
}

// expireRestore clears a stored token found invalid during restore, unless a
// Login replaced it while the restore was running.
func (s *SessionService) expireRestore(ctx context.Context, clientID string) domain.Session {
	if !s.pending(clientID) {
		sess, _ := s.Snapshot(clientID)
		return sess
	}
	s.deleteToken(ctx, clientID)
	return s.settle(clientID, domain.Session{Expired: true})
}

func (s *SessionService) clear(ctx context.Context, clientID string) domain.Session {
	s.deleteToken(ctx, clientID)
	sess := domain.Session{Expired: true}
	s.set(clientID, sess)
	return sess
}

func (s *SessionService) deleteToken(ctx context.Context, clientID string) {
	if err := s.tokens.Delete(ctx, clientID); err != nil {
		s.log.Error().Err(err).Str("client", shortID(clientID)).Msg("delete stored token")
	}
}

// Len returns the number of sessions held in memory.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Login persists token for the client, then fetches the current user. When
// the fetch fails the token is kept without a user and the error returned.
func (s *SessionService) Login(ctx context.Context, clientID, token string) error {
	if token == "" {
		return fmt.Errorf("login: empty token")
	}
	if err := s.tokens.Set(ctx, clientID, token, s.expiry(token)); err != nil {
		return fmt.Errorf("login: store token: %w", err)
	}
	s.set(clientID, domain.Session{Token: token})

	user, err := s.gw.ForClient(clientID).CurrentUser(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("client", shortID(clientID)).Msg("login: user fetch failed")
		return fmt.Errorf("login: %w: %w", errUserFetch, err)
	}
	s.set(clientID, domain.Session{Token: token, User: user})
	return nil
}

// Authenticate exchanges credentials for a token and logs the client in.
// Only a rejected exchange is an error; a failed user fetch afterwards leaves
// the client signed in without a user, as Login does.
func (s *SessionService) Authenticate(ctx context.Context, clientID, email, password string) error {
	token, err := s.gw.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := s.Login(ctx, clientID, token); err != nil && !errors.Is(err, errUserFetch) {
		return err
	}
	return nil
}

// Register creates the account, then authenticates with the same credentials.
func (s *SessionService) Register(ctx context.Context, clientID string, u domain.NewUser) error {
	if _, err := s.gw.Register(ctx, u); err != nil {
		return err
	}
	return s.Authenticate(ctx, clientID, u.Email, u.Password)
}

// Logout forgets the client's token and resets its session.
func (s *SessionService) Logout(ctx context.Context, clientID string) error {
	err := s.tokens.Delete(ctx, clientID)
	s.set(clientID, domain.Session{})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Expire logs the client out after the backend rejected its token.
func (s *SessionService) Expire(ctx context.Context, clientID string) {
	s.log.Info().Str("client", shortID(clientID)).Msg("session expired")
	s.clear(ctx, clientID)
}

func (s *SessionService) expiry(token string) time.Time {
	if exp, ok := tokenExpiry(token); ok {
		return exp
	}
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend stays the authority on validity.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func shortID(clientID string) string {
	if len(clientID) > 8 {
		return clientID[:8]
	}
	return clientID
}
