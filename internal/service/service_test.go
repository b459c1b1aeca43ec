package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/metime/identity/config"
	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/internal/model"
	"github.com/metime/identity/internal/notify"
	"github.com/metime/identity/internal/password"
	"github.com/metime/identity/internal/repository"
	"github.com/metime/identity/pkg/redis"
)

const testPassword = "correct horse battery"

// testEnv wires the services against an in-memory store, a miniredis cache
// and an inline job queue that records dispatched notifications.
type testEnv struct {
	store  *repository.MemoryUserStore
	mini   *miniredis.Miniredis
	cache  *redis.Client
	policy *password.Policy
	tokens *TokenService
	otp    *OTPService
	users  *UserService
	auth   *AuthenticationService

	mu       sync.Mutex
	messages []notify.Message
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mini := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := &testEnv{
		store:  repository.NewMemoryUserStore(),
		mini:   mini,
		cache:  redis.NewClientFromRedis(rdb),
		policy: password.NewPolicy(),
	}

	queue := &recorderQueue{env: env}

	jwtCfg := config.JWTConfig{
		Secret:                 "test-secret",
		AccessTokenLifetime:    15 * time.Minute,
		RefreshTokenLifetime:   7 * 24 * time.Hour,
		SigningAlgorithm:       "HS256",
		RotateRefreshTokens:    true,
		BlacklistAfterRotation: true,
	}
	verifyCfg := config.VerificationConfig{
		CodeDigits:           6,
		VerificationTimeout:  12 * time.Hour,
		ResetPasswordTimeout: 12 * time.Hour,
		DefaultPhoneRegion:   "US",
	}

	resolver := identifier.NewResolver(verifyCfg.DefaultPhoneRegion)

	env.tokens = NewTokenService(jwtCfg, env.store, env.cache)
	env.otp = NewOTPService(verifyCfg, env.cache, queue)
	env.users = NewUserService(env.store, resolver, env.policy, env.otp)
	env.auth = NewAuthenticationService(env.store, resolver, env.policy, env.tokens)

	return env
}

// recorderQueue is an inline queue that records dispatched notifications
// instead of delivering them.
type recorderQueue struct {
	env *testEnv
}

func (q *recorderQueue) Enqueue(_ context.Context, name string, payload any) error {
	if name != notify.JobName {
		return nil
	}
	message, ok := payload.(notify.Message)
	if !ok {
		return nil
	}
	q.env.mu.Lock()
	defer q.env.mu.Unlock()
	q.env.messages = append(q.env.messages, message)
	return nil
}

func (e *testEnv) sentMessages() []notify.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]notify.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// createUser seeds a verified, active account directly through the store.
func (e *testEnv) createUser(t *testing.T, phone, email string) *model.User {
	t.Helper()

	hashed, err := e.policy.Hash(testPassword)
	if err != nil {
		t.Fatalf("failed to hash test password: %v", err)
	}

	user := &model.User{
		FirstName: "Test",
		LastName:  "User",
		Password:  hashed,
		IsActive:  true,
	}
	if phone != "" {
		user.Phone = &phone
		user.IsPhoneVerified = true
	}
	if email != "" {
		user.Email = &email
		user.IsEmailVerified = true
	}

	if err := e.store.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// storedCode reads the code currently cached under key, failing the test
// when no code is present.
func (e *testEnv) storedCode(t *testing.T, key string) string {
	t.Helper()

	code, err := e.cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("expected code under %q: %v", key, err)
	}
	return code
}
