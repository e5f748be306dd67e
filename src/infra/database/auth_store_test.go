package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chorale/src/features/auth"
)

func mustIdentity(t *testing.T, store *Store, login string) *auth.Identity {
	t.Helper()
	identity := &auth.Identity{
		LoginName:     login,
		PasswordHash:  "hash",
		HashAlgorithm: "bcrypt",
	}
	if err := store.CreateIdentity(context.Background(), identity); err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}
	return identity
}

func TestCreateUserWithIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &auth.User{Name: "alice", IsAdmin: true}
	identity := &auth.Identity{LoginName: "alice", PasswordHash: "hash", HashAlgorithm: "bcrypt"}
	if err := store.CreateUserWithIdentity(ctx, user, identity); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.ID == 0 || identity.ID == 0 {
		t.Fatal("expected ids assigned")
	}

	got, err := store.GetIdentityByLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got == nil || got.UserID != user.ID {
		t.Errorf("expected identity linked to user %d, got %+v", user.ID, got)
	}

	fetched, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if fetched == nil || !fetched.IsAdmin || fetched.Name != "alice" {
		t.Errorf("unexpected user: %+v", fetched)
	}
}

func TestGetIdentityByLoginMissReturnsNil(t *testing.T) {
	store := newTestStore(t)

	identity, err := store.GetIdentityByLogin(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity != nil {
		t.Errorf("expected nil identity, got %+v", identity)
	}
}

func TestRecordFailedAttemptStreaks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	identity := mustIdentity(t, store, "bob")

	now := time.Now().UTC()
	windowStart := now.Add(-5 * time.Minute)

	for i := 0; i < 3; i++ {
		if err := store.RecordFailedAttempt(ctx, identity.ID, windowStart, now); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	got, _ := store.GetIdentity(ctx, identity.ID)
	if got.FailedAttempts != 3 {
		t.Errorf("expected 3 in-window failures, got %d", got.FailedAttempts)
	}
	if !got.LastFailure.Equal(now.Truncate(time.Second)) {
		t.Errorf("expected last failure %v, got %v", now.Truncate(time.Second), got.LastFailure)
	}

	// A window starting after the last failure begins a fresh streak.
	later := now.Add(10 * time.Minute)
	if err := store.RecordFailedAttempt(ctx, identity.ID, later.Add(-5*time.Minute), later); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	got, _ = store.GetIdentity(ctx, identity.ID)
	if got.FailedAttempts != 1 {
		t.Errorf("expected streak reset to 1, got %d", got.FailedAttempts)
	}
}

func TestResolveUserCreatesLazily(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := mustIdentity(t, store, "carol")
	user, err := store.ResolveUser(ctx, first.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if user == nil || user.Name != "carol" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if !user.IsAdmin {
		t.Error("expected first user to be admin")
	}

	again, err := store.ResolveUser(ctx, first.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("expected same user on second resolve, got %d and %d", user.ID, again.ID)
	}

	second := mustIdentity(t, store, "dave")
	other, err := store.ResolveUser(ctx, second.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if other.IsAdmin {
		t.Error("expected later users to be regular")
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestConcurrentFirstLoginsCreateOneUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	identity := mustIdentity(t, store, "carol")

	const logins = 8
	var wg sync.WaitGroup
	errs := make(chan error, logins)

	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Same retry-once idiom the auth service uses when two
			// first logins collide.
			user, err := store.ResolveUser(ctx, identity.ID)
			if err != nil {
				user, err = store.ResolveUser(ctx, identity.ID)
			}
			if err == nil && user == nil {
				err = errors.New("no user resolved")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected exactly 1 user after %d concurrent first logins, got %d", logins, len(users))
	}

	got, _ := store.GetIdentity(ctx, identity.ID)
	if got.UserID != users[0].ID {
		t.Errorf("expected identity linked to user %d, got %d", users[0].ID, got.UserID)
	}
}

func TestCompleteLoginResetsThrottle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	identity := mustIdentity(t, store, "erin")

	now := time.Now().UTC()
	if err := store.RecordFailedAttempt(ctx, identity.ID, now.Add(-5*time.Minute), now); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	user, err := store.CompleteLogin(ctx, identity.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if user == nil {
		t.Fatal("expected user")
	}

	got, _ := store.GetIdentity(ctx, identity.ID)
	if got.FailedAttempts != 0 || !got.LastFailure.IsZero() {
		t.Errorf("expected throttle reset, got attempts=%d last=%v", got.FailedAttempts, got.LastFailure)
	}
	if got.UserID != user.ID {
		t.Errorf("expected identity linked to user %d, got %d", user.ID, got.UserID)
	}
}

func TestSetPassword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	identity := mustIdentity(t, store, "frank")

	if err := store.SetPassword(ctx, identity.ID, "newhash", "bcrypt"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, _ := store.GetIdentity(ctx, identity.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected updated hash, got %q", got.PasswordHash)
	}
}

func TestDuplicateLoginRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustIdentity(t, store, "grace")

	err := store.CreateIdentity(ctx, &auth.Identity{
		LoginName: "grace", PasswordHash: "hash", HashAlgorithm: "bcrypt",
	})
	if err == nil {
		t.Error("expected unique login violation")
	}
}

func TestTokenLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	identity := mustIdentity(t, store, "heidi")

	now := time.Now().UTC().Truncate(time.Second)
	token := &auth.Token{
		IdentityID: identity.ID,
		Value:      "token-value",
		Expires:    now.Add(24 * time.Hour),
	}
	if err := store.CreateToken(ctx, token); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.GetToken(ctx, "token-value")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.IdentityID != identity.ID || !got.Expires.Equal(token.Expires) {
		t.Errorf("unexpected token: %+v", got)
	}

	if err := store.DeleteToken(ctx, "token-value"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err = store.GetToken(ctx, "token-value")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Error("expected token gone")
	}
}

func TestDeleteExpiredTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	identity := mustIdentity(t, store, "ivan")

	now := time.Now().UTC()
	stale := &auth.Token{IdentityID: identity.ID, Value: "stale", Expires: now.Add(-time.Hour)}
	live := &auth.Token{IdentityID: identity.ID, Value: "live", Expires: now.Add(time.Hour)}
	for _, tok := range []*auth.Token{stale, live} {
		if err := store.CreateToken(ctx, tok); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	purged, err := store.DeleteExpiredTokens(ctx, now)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged token, got %d", purged)
	}
	if got, _ := store.GetToken(ctx, "live"); got == nil {
		t.Error("expected live token kept")
	}
}
