package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chorale/src/features/config"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Service is the credential manager and session/identity bridge.
// It verifies passwords, throttles repeated failures, and resolves
// authenticated identities to library users.
type Service struct {
	store         Store
	configManager *config.Manager
	hasher        *PasswordHasher
	dummyHash     string

	loginsTotal      prometheus.Counter
	loginErrorsTotal prometheus.Counter

	mu       sync.RWMutex
	sessions map[string]*Session
}

// SetCounters wires the login outcome counters. Optional.
func (s *Service) SetCounters(logins, loginErrors prometheus.Counter) {
	s.loginsTotal = logins
	s.loginErrorsTotal = loginErrors
}

// NewService creates a new auth service.
func NewService(store Store, cfgManager *config.Manager) *Service {
	hasher := NewPasswordHasher(cfgManager.Get().Auth.BcryptCost)
	// Hash an unmatchable password once so that logins against unknown
	// names cost the same as logins against real ones.
	dummy, _, err := hasher.Hash(uuid.New().String())
	if err != nil {
		slog.Error("Failed to prepare dummy hash", "error", err)
	}
	return &Service{
		store:         store,
		configManager: cfgManager,
		hasher:        hasher,
		dummyHash:     dummy,
		sessions:      make(map[string]*Session),
	}
}

func (s *Service) strengthPolicy() StrengthPolicy {
	cfg := s.configManager.Get().Auth
	policy := DefaultStrengthPolicy()
	if cfg.Strength.OneClass > 0 {
		policy.MinLength[0] = cfg.Strength.OneClass
	}
	if cfg.Strength.TwoClass > 0 {
		policy.MinLength[1] = cfg.Strength.TwoClass
	}
	if cfg.Strength.ThreeClass > 0 {
		policy.MinLength[2] = cfg.Strength.ThreeClass
	}
	if cfg.Strength.FourClass > 0 {
		policy.MinLength[3] = cfg.Strength.FourClass
	}
	return policy
}

func (s *Service) lockoutWindow() time.Duration {
	secs := s.configManager.Get().Auth.LockoutWindowSeconds
	if secs <= 0 {
		secs = 300
	}
	return time.Duration(secs) * time.Second
}

func (s *Service) maxAttempts() int {
	n := s.configManager.Get().Auth.MaxAttempts
	if n <= 0 {
		n = 5
	}
	return n
}

// ValidatePasswordStrength checks a candidate password against the
// configured policy.
func (s *Service) ValidatePasswordStrength(password string) error {
	return s.strengthPolicy().Validate(password)
}

// Login verifies the credentials and opens a session. All failures
// surface as ErrInvalidCredentials except an active lockout, which
// surfaces as ErrLockedOut. With remember set, a persisted token is
// returned alongside the session for later resumption.
func (s *Service) Login(ctx context.Context, loginName, password string, remember bool) (*Session, string, error) {
	now := time.Now()

	identity, err := s.store.GetIdentityByLogin(ctx, loginName)
	if err != nil {
		slog.Error("Login: identity lookup failed", "error", err)
		return nil, "", s.rejectLogin(ErrInvalidCredentials)
	}
	if identity == nil {
		// Burn the same hashing time as a real verification.
		s.hasher.Verify(password, s.dummyHash, algorithmBcrypt)
		return nil, "", s.rejectLogin(ErrInvalidCredentials)
	}

	if s.isLockedOut(identity, now) {
		slog.Warn("Login: identity locked out", "identityID", identity.ID)
		return nil, "", s.rejectLogin(ErrLockedOut)
	}

	if !s.hasher.Verify(password, identity.PasswordHash, identity.HashAlgorithm) {
		windowStart := now.Add(-s.lockoutWindow())
		if err := s.store.RecordFailedAttempt(ctx, identity.ID, windowStart, now); err != nil {
			slog.Error("Login: failed to record attempt", "identityID", identity.ID, "error", err)
		}
		return nil, "", s.rejectLogin(ErrInvalidCredentials)
	}

	user, err := s.completeLogin(ctx, identity.ID)
	if err != nil || user == nil {
		slog.Error("Login: could not resolve user", "identityID", identity.ID, "error", err)
		return nil, "", s.rejectLogin(ErrInvalidCredentials)
	}

	session := s.openSession(user.ID, identity.ID)

	tokenValue := ""
	if remember {
		token := &Token{
			IdentityID: identity.ID,
			Value:      uuid.New().String(),
			Expires:    now.Add(s.tokenValidity()),
		}
		if err := s.store.CreateToken(ctx, token); err != nil {
			slog.Error("Login: failed to persist token", "identityID", identity.ID, "error", err)
		} else {
			tokenValue = token.Value
		}
	}

	if s.loginsTotal != nil {
		s.loginsTotal.Inc()
	}
	slog.Info("Login succeeded", "userID", user.ID)
	return session, tokenValue, nil
}

func (s *Service) rejectLogin(err error) error {
	if s.loginErrorsTotal != nil {
		s.loginErrorsTotal.Inc()
	}
	return err
}

// completeLogin resolves the user, retrying once when two first logins
// for the same identity collide.
func (s *Service) completeLogin(ctx context.Context, identityID int64) (*User, error) {
	user, err := s.store.CompleteLogin(ctx, identityID)
	if err != nil {
		slog.Debug("Login: resolution conflict, retrying once", "identityID", identityID, "error", err)
		user, err = s.store.CompleteLogin(ctx, identityID)
	}
	return user, err
}

func (s *Service) isLockedOut(identity *Identity, now time.Time) bool {
	if identity.FailedAttempts < s.maxAttempts() {
		return false
	}
	return now.Sub(identity.LastFailure) < s.lockoutWindow()
}

// ResumeSession opens a session from a persisted remember-me token.
func (s *Service) ResumeSession(ctx context.Context, tokenValue string) (*Session, error) {
	token, err := s.store.GetToken(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if token == nil || time.Now().After(token.Expires) {
		return nil, ErrInvalidToken
	}

	user, err := s.ResolveUser(ctx, token.IdentityID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidIdentity
	}
	return s.openSession(user.ID, token.IdentityID), nil
}

// ResolveUser returns the library user linked to the identity, lazily
// creating and linking one exactly once for a new identity.
func (s *Service) ResolveUser(ctx context.Context, identityID int64) (*User, error) {
	identity, err := s.store.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrInvalidIdentity
	}

	user, err := s.store.ResolveUser(ctx, identityID)
	if err != nil {
		slog.Debug("ResolveUser: conflict, retrying once", "identityID", identityID, "error", err)
		user, err = s.store.ResolveUser(ctx, identityID)
	}
	return user, err
}

// SessionByID returns the active session for an id, or nil.
func (s *Service) SessionByID(sessionID string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok || time.Now().After(session.Expires) {
		return nil
	}
	return session
}

// TokenValidity returns the configured remember-me token lifetime.
func (s *Service) TokenValidity() time.Duration {
	return s.tokenValidity()
}

// CurrentUser returns the user of an active session, or nil when no
// identity is active for the session id.
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*User, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || time.Now().After(session.Expires) {
		return nil, nil
	}
	return s.store.GetUser(ctx, session.UserID)
}

// Logout closes a session and forgets the given remember-me token,
// if any.
func (s *Service) Logout(ctx context.Context, sessionID, tokenValue string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if tokenValue != "" {
		if err := s.store.DeleteToken(ctx, tokenValue); err != nil {
			slog.Error("Logout: failed to delete token", "error", err)
		}
	}
}

// IsAdmin reports whether the user may perform administrative
// operations.
func (s *Service) IsAdmin(user *User) bool {
	return user != nil && user.IsAdmin
}

// RegisterIdentity creates a login identity with no library user yet.
// The user is created lazily on the identity's first login, and the
// very first user to exist becomes an administrator.
func (s *Service) RegisterIdentity(ctx context.Context, loginName, password string) (*Identity, error) {
	if err := s.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	existing, err := s.store.GetIdentityByLogin(ctx, loginName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLoginTaken
	}

	hash, algorithm, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		LoginName:     loginName,
		PasswordHash:  hash,
		HashAlgorithm: algorithm,
		CreatedDate:   time.Now(),
	}
	if err := s.store.CreateIdentity(ctx, identity); err != nil {
		return nil, err
	}
	slog.Info("Identity registered", "identityID", identity.ID)
	return identity, nil
}

// CreateUser creates a user and its login identity (administrative
// path). The password must satisfy the strength policy.
func (s *Service) CreateUser(ctx context.Context, loginName, password string, admin bool) (*User, error) {
	if err := s.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	existing, err := s.store.GetIdentityByLogin(ctx, loginName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLoginTaken
	}

	hash, algorithm, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &User{Name: loginName, IsAdmin: admin, CreatedDate: time.Now()}
	identity := &Identity{
		LoginName:     loginName,
		PasswordHash:  hash,
		HashAlgorithm: algorithm,
		CreatedDate:   time.Now(),
	}
	if err := s.store.CreateUserWithIdentity(ctx, user, identity); err != nil {
		return nil, err
	}
	slog.Info("User created", "userID", user.ID, "admin", admin)
	return user, nil
}

// ChangePassword replaces an identity's password after a strength
// check.
func (s *Service) ChangePassword(ctx context.Context, identityID int64, password string) error {
	if err := s.ValidatePasswordStrength(password); err != nil {
		return err
	}

	identity, err := s.store.GetIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	if identity == nil {
		return ErrInvalidIdentity
	}

	hash, algorithm, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.store.SetPassword(ctx, identityID, hash, algorithm)
}

// ListUsers returns all library users.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.ListUsers(ctx)
}

func (s *Service) tokenValidity() time.Duration {
	days := s.configManager.Get().Auth.TokenValidityDays
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

func (s *Service) sessionValidity() time.Duration {
	hours := s.configManager.Get().Auth.SessionValidityHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func (s *Service) openSession(userID, identityID int64) *Session {
	session := &Session{
		ID:         uuid.New().String(),
		UserID:     userID,
		IdentityID: identityID,
		Expires:    time.Now().Add(s.sessionValidity()),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.pruneExpiredLocked()
	s.mu.Unlock()

	return session
}

func (s *Service) pruneExpiredLocked() {
	now := time.Now()
	for id, session := range s.sessions {
		if now.After(session.Expires) {
			delete(s.sessions, id)
		}
	}
}
