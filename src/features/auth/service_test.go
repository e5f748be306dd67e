package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"chorale/src/features/config"
)

// MockStore implements only the methods each test needs; it will panic
// if unimplemented methods are called.
type MockStore struct {
	Store

	identities map[string]*Identity
	users      map[int64]*User
	tokens     map[string]*Token

	failedAttempts []int64 // identity ids, in call order
	completed      []int64
	deletedTokens  []string
}

func newMockStore() *MockStore {
	return &MockStore{
		identities: make(map[string]*Identity),
		users:      make(map[int64]*User),
		tokens:     make(map[string]*Token),
	}
}

func (m *MockStore) GetIdentityByLogin(ctx context.Context, login string) (*Identity, error) {
	return m.identities[login], nil
}

func (m *MockStore) GetIdentity(ctx context.Context, id int64) (*Identity, error) {
	for _, identity := range m.identities {
		if identity.ID == id {
			return identity, nil
		}
	}
	return nil, nil
}

func (m *MockStore) RecordFailedAttempt(ctx context.Context, identityID int64, windowStart, now time.Time) error {
	m.failedAttempts = append(m.failedAttempts, identityID)
	for _, identity := range m.identities {
		if identity.ID == identityID {
			if identity.LastFailure.Before(windowStart) {
				identity.FailedAttempts = 1
			} else {
				identity.FailedAttempts++
			}
			identity.LastFailure = now
		}
	}
	return nil
}

func (m *MockStore) CompleteLogin(ctx context.Context, identityID int64) (*User, error) {
	m.completed = append(m.completed, identityID)
	for _, identity := range m.identities {
		if identity.ID == identityID {
			identity.FailedAttempts = 0
			identity.LastFailure = time.Time{}
			if user, ok := m.users[identity.UserID]; ok {
				return user, nil
			}
			user := &User{ID: identity.ID + 100, Name: identity.LoginName}
			identity.UserID = user.ID
			m.users[user.ID] = user
			return user, nil
		}
	}
	return nil, errors.New("identity not found")
}

func (m *MockStore) ResolveUser(ctx context.Context, identityID int64) (*User, error) {
	for _, identity := range m.identities {
		if identity.ID == identityID {
			if user, ok := m.users[identity.UserID]; ok {
				return user, nil
			}
		}
	}
	return nil, errors.New("identity not found")
}

func (m *MockStore) GetUser(ctx context.Context, id int64) (*User, error) {
	return m.users[id], nil
}

func (m *MockStore) CreateToken(ctx context.Context, token *Token) error {
	m.tokens[token.Value] = token
	return nil
}

func (m *MockStore) GetToken(ctx context.Context, value string) (*Token, error) {
	return m.tokens[value], nil
}

func (m *MockStore) DeleteToken(ctx context.Context, value string) error {
	m.deletedTokens = append(m.deletedTokens, value)
	delete(m.tokens, value)
	return nil
}

func (m *MockStore) CreateIdentity(ctx context.Context, identity *Identity) error {
	identity.ID = int64(len(m.identities) + 1)
	m.identities[identity.LoginName] = identity
	return nil
}

func (m *MockStore) CreateUserWithIdentity(ctx context.Context, user *User, identity *Identity) error {
	identity.ID = int64(len(m.identities) + 1)
	user.ID = identity.ID + 100
	identity.UserID = user.ID
	m.identities[identity.LoginName] = identity
	m.users[user.ID] = user
	return nil
}

func testConfig() *config.Manager {
	return config.NewManager(&config.Config{
		Auth: config.Auth{
			BcryptCost:           4,
			MaxAttempts:          3,
			LockoutWindowSeconds: 300,
		},
	})
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	return NewService(store, testConfig())
}

func seedIdentity(t *testing.T, store *MockStore, service *Service, login, password string) *Identity {
	t.Helper()
	hash, algorithm, err := service.hasher.Hash(password)
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	identity := &Identity{
		ID:            int64(len(store.identities) + 1),
		LoginName:     login,
		PasswordHash:  hash,
		HashAlgorithm: algorithm,
	}
	store.identities[login] = identity
	return identity
}

func TestLoginSuccessOpensSession(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	seedIdentity(t, store, service, "alice", "secret")

	session, token, err := service.Login(context.Background(), "alice", "secret", false)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if session == nil || session.ID == "" {
		t.Fatal("expected a session")
	}
	if token != "" {
		t.Errorf("expected no remember token, got %q", token)
	}
	if len(store.completed) != 1 {
		t.Errorf("expected login completion recorded, got %d", len(store.completed))
	}

	if got := service.SessionByID(session.ID); got == nil {
		t.Error("expected session retrievable by id")
	}
}

func TestLoginWrongPasswordRecordsFailure(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	identity := seedIdentity(t, store, service, "alice", "secret")

	_, _, err := service.Login(context.Background(), "alice", "wrong", false)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(store.failedAttempts) != 1 || store.failedAttempts[0] != identity.ID {
		t.Errorf("expected failure recorded for identity %d, got %v", identity.ID, store.failedAttempts)
	}
}

func TestLoginUnknownNameLooksLikeWrongPassword(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)

	_, _, err := service.Login(context.Background(), "nobody", "secret", false)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(store.failedAttempts) != 0 {
		t.Error("expected no attempt recorded for unknown names")
	}
}

func TestLoginLockout(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	seedIdentity(t, store, service, "alice", "secret")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := service.Login(ctx, "alice", "wrong", false)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// Even the correct password is refused while locked out.
	_, _, err := service.Login(ctx, "alice", "secret", false)
	if !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}
}

func TestLockoutExpiresWithWindow(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	identity := seedIdentity(t, store, service, "alice", "secret")

	identity.FailedAttempts = 3
	identity.LastFailure = time.Now().Add(-10 * time.Minute)

	session, _, err := service.Login(context.Background(), "alice", "secret", false)
	if err != nil {
		t.Fatalf("expected login after window elapsed, got %v", err)
	}
	if session == nil {
		t.Fatal("expected a session")
	}
	if identity.FailedAttempts != 0 {
		t.Errorf("expected counter reset on success, got %d", identity.FailedAttempts)
	}
}

func TestLoginWithRememberIssuesToken(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	identity := seedIdentity(t, store, service, "alice", "secret")

	_, tokenValue, err := service.Login(context.Background(), "alice", "secret", true)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if tokenValue == "" {
		t.Fatal("expected a remember token")
	}

	token := store.tokens[tokenValue]
	if token == nil || token.IdentityID != identity.ID {
		t.Fatalf("expected persisted token for identity %d, got %+v", identity.ID, token)
	}
	if !token.Expires.After(time.Now().Add(13 * 24 * time.Hour)) {
		t.Errorf("expected default 14-day validity, expires %v", token.Expires)
	}
}

func TestResumeSession(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	seedIdentity(t, store, service, "alice", "secret")

	_, tokenValue, err := service.Login(context.Background(), "alice", "secret", true)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	session, err := service.ResumeSession(context.Background(), tokenValue)
	if err != nil {
		t.Fatalf("expected resumption, got %v", err)
	}
	if session == nil || session.ID == "" {
		t.Fatal("expected a fresh session")
	}
}

func TestResumeSessionExpiredToken(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	identity := seedIdentity(t, store, service, "alice", "secret")

	store.tokens["stale"] = &Token{
		IdentityID: identity.ID,
		Value:      "stale",
		Expires:    time.Now().Add(-time.Hour),
	}

	_, err := service.ResumeSession(context.Background(), "stale")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}

	_, err = service.ResumeSession(context.Background(), "never-issued")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for unknown token, got %v", err)
	}
}

func TestCurrentUserNoSession(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)

	user, err := service.CurrentUser(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestLogoutClosesSessionAndToken(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	seedIdentity(t, store, service, "alice", "secret")

	session, tokenValue, err := service.Login(context.Background(), "alice", "secret", true)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	service.Logout(context.Background(), session.ID, tokenValue)

	if service.SessionByID(session.ID) != nil {
		t.Error("expected session gone")
	}
	if len(store.deletedTokens) != 1 || store.deletedTokens[0] != tokenValue {
		t.Errorf("expected token deleted, got %v", store.deletedTokens)
	}
}

func TestCreateUserRejectsWeakAndTaken(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	ctx := context.Background()

	var weak *WeakPasswordError
	_, err := service.CreateUser(ctx, "alice", "", false)
	if !errors.As(err, &weak) {
		t.Fatalf("expected WeakPasswordError, got %v", err)
	}

	if _, err := service.CreateUser(ctx, "alice", "secret", false); err != nil {
		t.Fatalf("expected creation, got %v", err)
	}
	_, err = service.CreateUser(ctx, "alice", "secret", false)
	if !errors.Is(err, ErrLoginTaken) {
		t.Errorf("expected ErrLoginTaken, got %v", err)
	}
}

func TestRegisterIdentityHasNoUserYet(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)

	identity, err := service.RegisterIdentity(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("expected registration, got %v", err)
	}
	if identity.UserID != 0 {
		t.Errorf("expected no linked user before first login, got %d", identity.UserID)
	}
	if len(store.users) != 0 {
		t.Errorf("expected no users created, got %d", len(store.users))
	}
}

func TestChangePasswordVerifiesAfterward(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store)
	identity := seedIdentity(t, store, service, "alice", "old")

	setCalled := false
	storeWithSet := &setPasswordStore{MockStore: store, onSet: func(id int64, hash, algorithm string) {
		setCalled = true
		identity.PasswordHash = hash
		identity.HashAlgorithm = algorithm
	}}
	service = NewService(storeWithSet, testConfig())

	if err := service.ChangePassword(context.Background(), identity.ID, "newpass"); err != nil {
		t.Fatalf("expected change, got %v", err)
	}
	if !setCalled {
		t.Fatal("expected SetPassword called")
	}
	if _, _, err := service.Login(context.Background(), "alice", "newpass", false); err != nil {
		t.Errorf("expected login with new password, got %v", err)
	}
}

type setPasswordStore struct {
	*MockStore
	onSet func(id int64, hash, algorithm string)
}

func (s *setPasswordStore) SetPassword(ctx context.Context, identityID int64, hash, algorithm string) error {
	s.onSet(identityID, hash, algorithm)
	return nil
}

type nilResolveStore struct {
	*MockStore
}

func (s *nilResolveStore) CompleteLogin(ctx context.Context, identityID int64) (*User, error) {
	return nil, nil
}

func (s *nilResolveStore) ResolveUser(ctx context.Context, identityID int64) (*User, error) {
	return nil, nil
}

func TestLoginRejectsUnresolvableUser(t *testing.T) {
	base := newMockStore()
	store := &nilResolveStore{MockStore: base}
	service := NewService(store, testConfig())
	seedIdentity(t, base, service, "alice", "secret")

	_, _, err := service.Login(context.Background(), "alice", "secret", false)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestResumeSessionRejectsUnresolvableUser(t *testing.T) {
	base := newMockStore()
	store := &nilResolveStore{MockStore: base}
	service := NewService(store, testConfig())
	identity := seedIdentity(t, base, service, "alice", "secret")

	base.tokens["remember"] = &Token{
		IdentityID: identity.ID,
		Value:      "remember",
		Expires:    time.Now().Add(time.Hour),
	}

	_, err := service.ResumeSession(context.Background(), "remember")
	if !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestIsAdmin(t *testing.T) {
	service := newTestService(t, newMockStore())

	if service.IsAdmin(nil) {
		t.Error("expected nil user to not be admin")
	}
	if service.IsAdmin(&User{}) {
		t.Error("expected regular user to not be admin")
	}
	if !service.IsAdmin(&User{IsAdmin: true}) {
		t.Error("expected admin user to be admin")
	}
}
