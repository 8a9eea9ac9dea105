package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
	"github.com/terraregistry/auth-service/internal/ports"
)

// ---- fakes -----------------------------------------------------------------

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]domain.User
	updateErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uuid.UUID]domain.User)}
}

func (f *fakeUsers) Create(_ context.Context, user domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == user.Email {
			return domain.User{}, domain.ErrDuplicateResource
		}
	}
	if user.UserID == uuid.Nil {
		user.UserID = uuid.New()
	}
	f.byID[user.UserID] = user
	return user, nil
}

func (f *fakeUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) GetByWalletAddress(_ context.Context, address string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byID {
		if user.WalletAddress == address {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, user domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[user.UserID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[user.UserID] = user
	return nil
}

func (f *fakeUsers) failUpdates(err error) {
	f.mu.Lock()
	f.updateErr = err
	f.mu.Unlock()
}

func (f *fakeUsers) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, userID)
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: make(map[uuid.UUID]domain.Session)}
}

func (f *fakeSessions) Create(_ context.Context, session domain.Session) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	f.byID[session.SessionID] = session
	return session, nil
}

func (f *fakeSessions) GetByAccessTokenHash(_ context.Context, digest string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.byID {
		if session.AccessTokenHash == digest {
			return session, nil
		}
	}
	return domain.Session{}, domain.ErrNotFound
}

func (f *fakeSessions) GetByRefreshTokenHash(_ context.Context, digest string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.byID {
		if session.RefreshTokenHash == digest {
			return session, nil
		}
	}
	return domain.Session{}, domain.ErrNotFound
}

func (f *fakeSessions) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, session := range f.byID {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *fakeSessions) Delete(_ context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[sessionID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, sessionID)
	return nil
}

func (f *fakeSessions) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, session := range f.byID {
		if session.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, session := range f.byID {
		if !session.ExpiresAt.After(now) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) DeleteInactive(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, session := range f.byID {
		if session.CreatedAt.Before(olderThan) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeEmailTokens struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.EmailVerificationToken
}

func newFakeEmailTokens() *fakeEmailTokens {
	return &fakeEmailTokens{byID: make(map[uuid.UUID]domain.EmailVerificationToken)}
}

func (f *fakeEmailTokens) Create(_ context.Context, token domain.EmailVerificationToken) (domain.EmailVerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.TokenID == uuid.Nil {
		token.TokenID = uuid.New()
	}
	f.byID[token.TokenID] = token
	return token, nil
}

func (f *fakeEmailTokens) GetByToken(_ context.Context, token string) (domain.EmailVerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.byID {
		if record.Token == token {
			return record, nil
		}
	}
	return domain.EmailVerificationToken{}, domain.ErrNotFound
}

func (f *fakeEmailTokens) MarkUsed(_ context.Context, tokenID uuid.UUID, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.byID[tokenID]
	if !ok {
		return domain.ErrNotFound
	}
	if record.UsedAt != nil {
		return domain.ErrTokenConsumed
	}
	record.UsedAt = &usedAt
	f.byID[tokenID] = record
	return nil
}

func (f *fakeEmailTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, record := range f.byID {
		if !record.ExpiresAt.After(now) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeEmailTokens) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, record := range f.byID {
		if record.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

type fakeResetTokens struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.PasswordResetToken
}

func newFakeResetTokens() *fakeResetTokens {
	return &fakeResetTokens{byID: make(map[uuid.UUID]domain.PasswordResetToken)}
}

func (f *fakeResetTokens) Create(_ context.Context, token domain.PasswordResetToken) (domain.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.TokenID == uuid.Nil {
		token.TokenID = uuid.New()
	}
	f.byID[token.TokenID] = token
	return token, nil
}

func (f *fakeResetTokens) GetByToken(_ context.Context, token string) (domain.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.byID {
		if record.Token == token {
			return record, nil
		}
	}
	return domain.PasswordResetToken{}, domain.ErrNotFound
}

func (f *fakeResetTokens) MarkUsed(_ context.Context, tokenID uuid.UUID, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.byID[tokenID]
	if !ok {
		return domain.ErrNotFound
	}
	if record.UsedAt != nil {
		return domain.ErrTokenConsumed
	}
	record.UsedAt = &usedAt
	f.byID[tokenID] = record
	return nil
}

func (f *fakeResetTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, record := range f.byID {
		if !record.ExpiresAt.After(now) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeResetTokens) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, record := range f.byID {
		if record.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

type fakeWallets struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Wallet
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{byID: make(map[uuid.UUID]domain.Wallet)}
}

func (f *fakeWallets) Create(_ context.Context, wallet domain.Wallet) (domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Address == wallet.Address || existing.UserID == wallet.UserID {
			return domain.Wallet{}, domain.ErrDuplicateResource
		}
	}
	if wallet.WalletID == uuid.Nil {
		wallet.WalletID = uuid.New()
	}
	f.byID[wallet.WalletID] = wallet
	return wallet, nil
}

func (f *fakeWallets) GetByAddress(_ context.Context, address string) (domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, wallet := range f.byID {
		if wallet.Address == address {
			return wallet, nil
		}
	}
	return domain.Wallet{}, domain.ErrNotFound
}

func (f *fakeWallets) GetByUser(_ context.Context, userID uuid.UUID) (domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, wallet := range f.byID {
		if wallet.UserID == userID {
			return wallet, nil
		}
	}
	return domain.Wallet{}, domain.ErrNotFound
}

func (f *fakeWallets) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, wallet := range f.byID {
		if wallet.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

func (f *fakeWallets) setActive(t *testing.T, userID uuid.UUID, active bool) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, wallet := range f.byID {
		if wallet.UserID == userID {
			wallet.IsActive = active
			f.byID[id] = wallet
			return
		}
	}
	t.Fatalf("no wallet for user %s", userID)
}

type fakeChallenges struct {
	mu   sync.Mutex
	seq  int
	byID map[string]domain.WalletChallenge
}

func newFakeChallenges() *fakeChallenges {
	return &fakeChallenges{byID: make(map[string]domain.WalletChallenge)}
}

func (f *fakeChallenges) Generate(userID uuid.UUID) domain.WalletChallenge {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	challenge := domain.WalletChallenge{
		ChallengeID: fmt.Sprintf("chal-%d", f.seq),
		UserID:      userID,
		Message:     fmt.Sprintf("terra-registry login challenge chal-%d", f.seq),
		ExpiresAt:   time.Now().UTC().Add(10 * time.Minute),
	}
	f.byID[challenge.ChallengeID] = challenge
	return challenge
}

func (f *fakeChallenges) Consume(challengeID string) (domain.WalletChallenge, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.byID[challengeID]
	if !ok {
		return domain.WalletChallenge{}, false
	}
	delete(f.byID, challengeID)
	return challenge, true
}

type fakeWalletAuth struct {
	mu               sync.Mutex
	addressErr       error
	stakeAddressErr  error
	signatureErr     error
	verifyCalls      int
	lastVerifiedAddr string
}

func (f *fakeWalletAuth) ValidateAddress(string) error {
	return f.addressErr
}

func (f *fakeWalletAuth) ValidateStakeAddress(string) error {
	return f.stakeAddressErr
}

func (f *fakeWalletAuth) VerifySignature(_, address, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	f.lastVerifiedAddr = address
	return f.signatureErr
}

// fakeHasher is deterministic and cheap. compareCalls lets tests assert the
// credential check ran even when no account exists.
type fakeHasher struct {
	mu           sync.Mutex
	compareCalls int
}

func (f *fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (f *fakeHasher) Compare(hash, password string) error {
	f.mu.Lock()
	f.compareCalls++
	f.mu.Unlock()
	if hash != "hashed:"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (f *fakeHasher) compares() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compareCalls
}

type fakeTokens struct {
	mu      sync.Mutex
	seq     int
	access  map[string]ports.AccessClaims
	refresh map[string]ports.RefreshClaims
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		access:  make(map[string]ports.AccessClaims),
		refresh: make(map[string]ports.RefreshClaims),
	}
}

func (f *fakeTokens) IssuePair(user domain.User, now time.Time) (ports.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	pair := ports.TokenPair{
		AccessToken:      fmt.Sprintf("access-%d", f.seq),
		RefreshToken:     fmt.Sprintf("refresh-%d", f.seq),
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
	}
	f.access[pair.AccessToken] = ports.AccessClaims{UserID: user.UserID, Email: user.Email, Role: user.Role}
	f.refresh[pair.RefreshToken] = ports.RefreshClaims{UserID: user.UserID}
	return pair, nil
}

func (f *fakeTokens) VerifyAccessToken(token string) (ports.AccessClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.access[token]
	if !ok {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}
	return claims, nil
}

func (f *fakeTokens) VerifyRefreshToken(token string) (ports.RefreshClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.refresh[token]
	if !ok {
		return ports.RefreshClaims{}, domain.ErrInvalidToken
	}
	return claims, nil
}

func (f *fakeTokens) HashToken(token string) string {
	return "digest:" + token
}

type sentMail struct {
	To    string
	Token string
}

type fakeEmail struct {
	mu            sync.Mutex
	verifications []sentMail
	resets        []sentMail
	failNext      error
}

func (f *fakeEmail) SendVerificationEmail(_ context.Context, email, _, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.verifications = append(f.verifications, sentMail{To: email, Token: token})
	return nil
}

func (f *fakeEmail) SendPasswordResetEmail(_ context.Context, email, _, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sentMail{To: email, Token: token})
	return nil
}

func (f *fakeEmail) SendNotificationEmail(_ context.Context, _, _, _ string) error {
	return nil
}

func (f *fakeEmail) lastVerification(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.verifications) == 0 {
		t.Fatalf("no verification email sent")
	}
	return f.verifications[len(f.verifications)-1]
}

func (f *fakeEmail) lastReset(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resets) == 0 {
		t.Fatalf("no reset email sent")
	}
	return f.resets[len(f.resets)-1]
}

func (f *fakeEmail) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resets)
}

type fakeRates struct {
	mu      sync.Mutex
	counts  map[string]int
	blocked map[string]time.Time
}

func newFakeRates() *fakeRates {
	return &fakeRates{counts: make(map[string]int), blocked: make(map[string]time.Time)}
}

func (f *fakeRates) Get(_ context.Context, key string) (ports.RateLimitState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := ports.RateLimitState{Count: f.counts[key]}
	if until, ok := f.blocked[key]; ok {
		state.BlockedUntil = &until
	}
	return state, nil
}

func (f *fakeRates) RecordHit(_ context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.RateLimitState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	state := ports.RateLimitState{Count: f.counts[key]}
	if f.counts[key] > threshold {
		until := now.Add(window)
		f.blocked[key] = until
		state.BlockedUntil = &until
	}
	return state, nil
}

func (f *fakeRates) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, key)
	delete(f.blocked, key)
	return nil
}

// ---- fixture ---------------------------------------------------------------

type fixture struct {
	service     *Service
	users       *fakeUsers
	sessions    *fakeSessions
	emailTokens *fakeEmailTokens
	resetTokens *fakeResetTokens
	wallets     *fakeWallets
	challenges  *fakeChallenges
	walletAuth  *fakeWalletAuth
	hasher      *fakeHasher
	tokens      *fakeTokens
	email       *fakeEmail
	rates       *fakeRates

	mu  sync.Mutex
	now time.Time
}

func defaultTestConfig() Config {
	return Config{
		DefaultRole:          domain.RoleDeveloper,
		FailedLoginThreshold: 5,
		LockoutDuration:      30 * time.Minute,
		VerificationTokenTTL: 24 * time.Hour,
		ResetTokenTTL:        time.Hour,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, defaultTestConfig())
}

func newFixtureWithConfig(t *testing.T, cfg Config) *fixture {
	t.Helper()

	f := &fixture{
		users:       newFakeUsers(),
		sessions:    newFakeSessions(),
		emailTokens: newFakeEmailTokens(),
		resetTokens: newFakeResetTokens(),
		wallets:     newFakeWallets(),
		challenges:  newFakeChallenges(),
		walletAuth:  &fakeWalletAuth{},
		hasher:      &fakeHasher{},
		tokens:      newFakeTokens(),
		email:       &fakeEmail{},
		rates:       newFakeRates(),
		now:         time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewService(Dependencies{
		Config:      cfg,
		Users:       f.users,
		Sessions:    f.sessions,
		EmailTokens: f.emailTokens,
		ResetTokens: f.resetTokens,
		Wallets:     f.wallets,
		Challenges:  f.challenges,
		WalletAuth:  f.walletAuth,
		Hasher:      f.hasher,
		Tokens:      f.tokens,
		Email:       f.email,
		Rates:       f.rates,
	})
	f.service.nowFn = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fixture) register(t *testing.T, email, password string) domain.User {
	t.Helper()
	resp, err := f.service.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: password,
		Name:     "Test User",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return resp.User
}

func (f *fixture) login(t *testing.T, email, password string) AuthResponse {
	t.Helper()
	resp, err := f.service.Login(context.Background(), LoginRequest{
		Email:     email,
		Password:  password,
		IPAddress: "203.0.113.7",
		UserAgent: "go-test/1.0",
	})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return resp
}

func (f *fixture) linkWallet(t *testing.T, userID uuid.UUID, address string) domain.Wallet {
	t.Helper()
	challenge := f.challenges.Generate(userID)
	wallet, err := f.service.LinkWallet(context.Background(), LinkWalletRequest{
		UserID:      userID,
		ChallengeID: challenge.ChallengeID,
		Address:     address,
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if err != nil {
		t.Fatalf("link wallet: %v", err)
	}
	return wallet
}

// ---- registration and email verification -----------------------------------

func TestRegisterIssuesVerificationToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "Dev@Example.com", "Password123!")
	if user.Email != "dev@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash != "" {
		t.Fatalf("response leaked password hash")
	}
	if user.Role != domain.RoleDeveloper {
		t.Fatalf("default role = %q, want developer", user.Role)
	}
	if user.EmailVerified {
		t.Fatalf("new account should start unverified")
	}

	mail := f.email.lastVerification(t)
	if mail.To != "dev@example.com" || mail.Token == "" {
		t.Fatalf("verification mail = %+v", mail)
	}

	if err := f.service.VerifyEmail(ctx, mail.Token); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	stored, err := f.users.GetByID(ctx, user.UserID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !stored.EmailVerified {
		t.Fatalf("verification did not flip the user")
	}

	// The token is single use.
	if err := f.service.VerifyEmail(ctx, mail.Token); !errors.Is(err, domain.ErrTokenConsumed) {
		t.Fatalf("second verify = %v, want ErrTokenConsumed", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.register(t, "dev@example.com", "Password123!")
	mail := f.email.lastVerification(t)

	f.advance(24*time.Hour + time.Minute)
	if err := f.service.VerifyEmail(context.Background(), mail.Token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("verify after TTL = %v, want ErrTokenExpired", err)
	}
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.register(t, "dev@example.com", "Password123!")
	_, err := f.service.Register(context.Background(), RegisterRequest{
		Email:    "DEV@EXAMPLE.COM",
		Password: "Password123!",
		Name:     "Someone Else",
	})
	if !errors.Is(err, domain.ErrDuplicateResource) {
		t.Fatalf("duplicate register = %v, want ErrDuplicateResource", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"weak password", RegisterRequest{Email: "a@example.com", Password: "short", Name: "A"}},
		{"missing name", RegisterRequest{Email: "a@example.com", Password: "Password123!"}},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "Password123!", Name: "A"}},
		{"unknown role", RegisterRequest{Email: "a@example.com", Password: "Password123!", Name: "A", Role: "superuser"}},
	}
	for _, tc := range cases {
		if _, err := f.service.Register(ctx, tc.req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: err = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestRegisterRateLimited(t *testing.T) {
	t.Parallel()
	cfg := defaultTestConfig()
	cfg.RegisterRateLimitIPThreshold = 3
	cfg.RegisterRateLimitIdentifierThreshold = 10
	cfg.RegisterRateLimitWindow = time.Minute
	f := newFixtureWithConfig(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Register(ctx, RegisterRequest{
			Email:     fmt.Sprintf("dev%d@example.com", i),
			Password:  "Password123!",
			Name:      "Dev",
			IPAddress: "198.51.100.9",
		})
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	_, err := f.service.Register(ctx, RegisterRequest{
		Email:     "dev4@example.com",
		Password:  "Password123!",
		Name:      "Dev",
		IPAddress: "198.51.100.9",
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("over-threshold register = %v, want ErrRateLimited", err)
	}
}

// ---- login and lockout -----------------------------------------------------

func TestLoginSuccessIssuesSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	resp := f.login(t, "dev@example.com", "Password123!")

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("missing tokens in response: %+v", resp)
	}
	if resp.User.PasswordHash != "" {
		t.Fatalf("login response leaked password hash")
	}

	session, err := f.sessions.GetByRefreshTokenHash(ctx, "digest:"+resp.RefreshToken)
	if err != nil {
		t.Fatalf("session not stored under refresh digest: %v", err)
	}
	if session.AccessTokenHash != "digest:"+resp.AccessToken {
		t.Fatalf("access digest = %q", session.AccessTokenHash)
	}
	if session.IPAddress != "203.0.113.7" || session.UserAgent != "go-test/1.0" {
		t.Fatalf("client metadata not captured: %+v", session)
	}

	stored, _ := f.users.GetByID(ctx, user.UserID)
	if stored.LastLoginAt == nil {
		t.Fatalf("last_login_at not stamped")
	}
}

func TestLoginWrongPasswordCountsFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")

	_, err := f.service.Login(ctx, LoginRequest{Email: "dev@example.com", Password: "WrongPass1"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", err)
	}

	stored, _ := f.users.GetByID(ctx, user.UserID)
	if stored.FailedLoginAttempts != 1 {
		t.Fatalf("failed attempts = %d, want 1", stored.FailedLoginAttempts)
	}
	if f.sessions.count() != 0 {
		t.Fatalf("failed login must not create a session")
	}
}

func TestLoginUnknownEmailStillRunsCredentialCheck(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.service.Login(context.Background(), LoginRequest{
		Email:    "ghost@example.com",
		Password: "Password123!",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email = %v, want ErrInvalidCredentials", err)
	}
	// The dummy-hash comparison keeps the failure path's cost uniform.
	if got := f.hasher.compares(); got != 1 {
		t.Fatalf("compare calls = %d, want 1", got)
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")

	for i := 0; i < 4; i++ {
		if _, err := f.service.Login(ctx, LoginRequest{Email: "dev@example.com", Password: "WrongPass1"}); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// Fifth failure crosses the threshold.
	_, err := f.service.Login(ctx, LoginRequest{Email: "dev@example.com", Password: "WrongPass1"})
	var locked *domain.AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("attempt 5 = %v, want AccountLockedError", err)
	}
	if locked.LockedUntil == nil {
		t.Fatalf("lock carries no expiry")
	}

	stored, _ := f.users.GetByID(ctx, user.UserID)
	if !stored.AccountLocked || stored.FailedLoginAttempts != 5 {
		t.Fatalf("lock not persisted: %+v", stored)
	}

	// Even the correct password is rejected while the lock holds, and the
	// rejection carries the same expiry the lock was created with.
	lockedUntil := *locked.LockedUntil
	_, err = f.service.Login(ctx, LoginRequest{Email: "dev@example.com", Password: "Password123!"})
	if !errors.As(err, &locked) {
		t.Fatalf("login during lock = %v, want AccountLockedError", err)
	}
	if locked.LockedUntil == nil || !locked.LockedUntil.Equal(lockedUntil) {
		t.Fatalf("lock expiry drifted: %v, want %v", locked.LockedUntil, lockedUntil)
	}

	// Past the lock window the account unlocks on the next attempt and the
	// cleared state is written back.
	f.advance(31 * time.Minute)
	f.login(t, "dev@example.com", "Password123!")
	stored, _ = f.users.GetByID(ctx, user.UserID)
	if stored.AccountLocked || stored.LockedUntil != nil || stored.FailedLoginAttempts != 0 {
		t.Fatalf("auto-unlock not persisted: %+v", stored)
	}
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	for i := 0; i < 3; i++ {
		_, _ = f.service.Login(ctx, LoginRequest{Email: "dev@example.com", Password: "WrongPass1"})
	}
	f.login(t, "dev@example.com", "Password123!")

	stored, _ := f.users.GetByID(ctx, user.UserID)
	if stored.FailedLoginAttempts != 0 {
		t.Fatalf("counter = %d after success, want 0", stored.FailedLoginAttempts)
	}
}

func TestLoginFailsClosedWhenLockWriteFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	f.users.failUpdates(errors.New("users table unavailable"))

	// A failure whose lockout bookkeeping cannot be persisted is denied as if
	// the account were locked, never as a plain bad-password miss.
	_, err := f.service.Login(ctx, LoginRequest{Email: "dev@example.com", Password: "WrongPass1"})
	if !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("login with failing lock write = %v, want ErrAccountLocked", err)
	}
	if f.sessions.count() != 0 {
		t.Fatalf("session created despite denied login")
	}
	stored, _ := f.users.GetByID(ctx, user.UserID)
	if stored.FailedLoginAttempts != 0 {
		t.Fatalf("counter persisted through a failing store: %+v", stored)
	}
}

// ---- refresh, logout, validate ---------------------------------------------

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "dev@example.com", "Password123!")
	first := f.login(t, "dev@example.com", "Password123!")

	rotated, err := f.service.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == first.RefreshToken || rotated.AccessToken == first.AccessToken {
		t.Fatalf("rotation reissued the same tokens")
	}

	// The old session is gone; the presented refresh token cannot be replayed.
	if _, err := f.sessions.GetByRefreshTokenHash(ctx, "digest:"+first.RefreshToken); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("old session still present: %v", err)
	}
	if _, err := f.service.Refresh(ctx, first.RefreshToken); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("replayed refresh = %v, want ErrNotFound", err)
	}

	// The replacement session inherits the original client metadata.
	session, err := f.sessions.GetByRefreshTokenHash(ctx, "digest:"+rotated.RefreshToken)
	if err != nil {
		t.Fatalf("rotated session missing: %v", err)
	}
	if session.IPAddress != "203.0.113.7" || session.UserAgent != "go-test/1.0" {
		t.Fatalf("metadata not inherited: %+v", session)
	}
	if f.sessions.count() != 1 {
		t.Fatalf("session count = %d, want 1", f.sessions.count())
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if _, err := f.service.Refresh(context.Background(), "not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("garbage refresh = %v, want ErrInvalidToken", err)
	}
}

func TestLogoutRevokesAllSessionsAndIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	f.login(t, "dev@example.com", "Password123!")
	f.login(t, "dev@example.com", "Password123!")
	if f.sessions.count() != 2 {
		t.Fatalf("session count = %d, want 2", f.sessions.count())
	}

	if err := f.service.Logout(ctx, user.UserID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if f.sessions.count() != 0 {
		t.Fatalf("sessions survived logout")
	}
	if err := f.service.Logout(ctx, user.UserID); err != nil {
		t.Fatalf("repeat logout: %v", err)
	}
}

func TestValidateTokenHonorsRevocation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	resp := f.login(t, "dev@example.com", "Password123!")

	claims, err := f.service.ValidateToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.UserID || claims.Email != "dev@example.com" {
		t.Fatalf("claims = %+v", claims)
	}

	if err := f.service.Logout(ctx, user.UserID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.service.ValidateToken(ctx, resp.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("validate after logout = %v, want ErrUnauthorized", err)
	}
}

// ---- password reset --------------------------------------------------------

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "dev@example.com", "Password123!")
	f.login(t, "dev@example.com", "Password123!")

	if err := f.service.RequestPasswordReset(ctx, "dev@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	mail := f.email.lastReset(t)

	err := f.service.ResetPassword(ctx, PasswordResetRequest{Token: mail.Token, NewPassword: "Fresh456Pass"})
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}

	// Every pre-existing session is revoked by the credential change.
	if f.sessions.count() != 0 {
		t.Fatalf("sessions survived password reset")
	}

	if _, err := f.service.Login(ctx, LoginRequest{Email: "dev@example.com", Password: "Password123!"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	f.login(t, "dev@example.com", "Fresh456Pass")

	// The reset token is single use.
	err = f.service.ResetPassword(ctx, PasswordResetRequest{Token: mail.Token, NewPassword: "Another789Pw"})
	if !errors.Is(err, domain.ErrTokenConsumed) {
		t.Fatalf("replayed reset token = %v, want ErrTokenConsumed", err)
	}
}

func TestRequestPasswordResetHidesUnknownAccounts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if err := f.service.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if f.email.resetCount() != 0 {
		t.Fatalf("reset mail sent for nonexistent account")
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "dev@example.com", "Password123!")
	if err := f.service.RequestPasswordReset(ctx, "dev@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	mail := f.email.lastReset(t)

	f.advance(time.Hour + time.Minute)
	err := f.service.ResetPassword(ctx, PasswordResetRequest{Token: mail.Token, NewPassword: "Fresh456Pass"})
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expired reset token = %v, want ErrTokenExpired", err)
	}
}

// ---- wallet linking and login ----------------------------------------------

func TestLinkWalletBindsAddressToUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	wallet := f.linkWallet(t, user.UserID, "addr_test1qexample")

	if !wallet.IsActive || wallet.VerifiedAt == nil {
		t.Fatalf("wallet not active/verified on link: %+v", wallet)
	}

	stored, _ := f.users.GetByID(ctx, user.UserID)
	if stored.WalletAddress != "addr_test1qexample" {
		t.Fatalf("address not mirrored onto user: %q", stored.WalletAddress)
	}
}

func TestLinkWalletRejectsForeignChallenge(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	alice := f.register(t, "alice@example.com", "Password123!")
	mallory := f.register(t, "mallory@example.com", "Password123!")

	challenge := f.challenges.Generate(alice.UserID)
	_, err := f.service.LinkWallet(context.Background(), LinkWalletRequest{
		UserID:      mallory.UserID,
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qexample",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("foreign challenge = %v, want ErrUnauthorized", err)
	}
	// The challenge is burned even on rejection.
	if _, ok := f.challenges.Consume(challenge.ChallengeID); ok {
		t.Fatalf("challenge survived a terminal attempt")
	}
}

func TestLinkWalletConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	alice := f.register(t, "alice@example.com", "Password123!")
	bob := f.register(t, "bob@example.com", "Password123!")
	f.linkWallet(t, alice.UserID, "addr_test1qalice")

	// A user gets exactly one wallet.
	challenge := f.challenges.Generate(alice.UserID)
	_, err := f.service.LinkWallet(ctx, LinkWalletRequest{
		UserID:      alice.UserID,
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qother",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second wallet = %v, want ErrConflict", err)
	}

	// An address binds to exactly one user.
	challenge = f.challenges.Generate(bob.UserID)
	_, err = f.service.LinkWallet(ctx, LinkWalletRequest{
		UserID:      bob.UserID,
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qalice",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("stolen address = %v, want ErrConflict", err)
	}
}

func TestLinkWalletRejectsBadSignature(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.walletAuth.signatureErr = domain.ErrSignatureInvalid

	user := f.register(t, "dev@example.com", "Password123!")
	challenge := f.challenges.Generate(user.UserID)
	_, err := f.service.LinkWallet(context.Background(), LinkWalletRequest{
		UserID:      user.UserID,
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qexample",
		Signature:   "forged",
		PublicKey:   "pubkey",
	})
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("forged signature = %v, want ErrSignatureInvalid", err)
	}
	if _, ok := f.challenges.Consume(challenge.ChallengeID); ok {
		t.Fatalf("challenge survived a failed proof")
	}
}

func TestWalletLoginIssuesSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	f.linkWallet(t, user.UserID, "addr_test1qexample")

	challenge := f.challenges.Generate(user.UserID)
	resp, err := f.service.WalletLogin(ctx, WalletLoginRequest{
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qexample",
		Signature:   "sig",
		PublicKey:   "pubkey",
		IPAddress:   "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("wallet login: %v", err)
	}
	if resp.User.UserID != user.UserID || resp.AccessToken == "" {
		t.Fatalf("wallet login response = %+v", resp)
	}

	// A consumed challenge cannot authenticate twice.
	_, err = f.service.WalletLogin(ctx, WalletLoginRequest{
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qexample",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("replayed challenge = %v, want ErrChallengeNotFound", err)
	}
}

func TestWalletLoginUnlinkedAddress(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	user := f.register(t, "dev@example.com", "Password123!")
	challenge := f.challenges.Generate(user.UserID)
	_, err := f.service.WalletLogin(context.Background(), WalletLoginRequest{
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qunknown",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if !errors.Is(err, domain.ErrWalletNotLinked) {
		t.Fatalf("unlinked address = %v, want ErrWalletNotLinked", err)
	}
}

func TestWalletLoginInactiveWallet(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	user := f.register(t, "dev@example.com", "Password123!")
	f.linkWallet(t, user.UserID, "addr_test1qexample")
	f.wallets.setActive(t, user.UserID, false)

	challenge := f.challenges.Generate(user.UserID)
	_, err := f.service.WalletLogin(context.Background(), WalletLoginRequest{
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qexample",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if !errors.Is(err, domain.ErrWalletNotLinked) {
		t.Fatalf("inactive wallet = %v, want ErrWalletNotLinked", err)
	}
}

func TestWalletLoginRespectsAccountLock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	f.linkWallet(t, user.UserID, "addr_test1qexample")

	for i := 0; i < 5; i++ {
		_, _ = f.service.Login(ctx, LoginRequest{Email: "dev@example.com", Password: "WrongPass1"})
	}

	challenge := f.challenges.Generate(user.UserID)
	_, err := f.service.WalletLogin(ctx, WalletLoginRequest{
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qexample",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	var locked *domain.AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("wallet login on locked account = %v, want AccountLockedError", err)
	}

	// The failed wallet attempt does not touch the password failure counter.
	stored, _ := f.users.GetByID(ctx, user.UserID)
	if stored.FailedLoginAttempts != 5 {
		t.Fatalf("counter = %d, want 5", stored.FailedLoginAttempts)
	}
}

func TestWalletLoginChallengeWorksWithoutSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "dev@example.com", "Password123!")
	f.linkWallet(t, user.UserID, "addr_test1qexample")

	// Challenge issuance is keyed by address alone; the signed proof then
	// completes a full login with no session or password in play.
	challenge, err := f.service.GenerateWalletLoginChallenge(ctx, "addr_test1qexample")
	if err != nil {
		t.Fatalf("login challenge: %v", err)
	}
	resp, err := f.service.WalletLogin(ctx, WalletLoginRequest{
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qexample",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if err != nil {
		t.Fatalf("wallet login: %v", err)
	}
	if resp.User.UserID != user.UserID {
		t.Fatalf("logged in as %s, want %s", resp.User.UserID, user.UserID)
	}
}

func TestWalletLoginChallengeDoesNotRevealLinkage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// An unlinked address still gets a challenge; the rejection only happens
	// once the proof is presented.
	challenge, err := f.service.GenerateWalletLoginChallenge(ctx, "addr_test1qunknown")
	if err != nil {
		t.Fatalf("challenge for unlinked address: %v", err)
	}
	if challenge.ChallengeID == "" || challenge.Message == "" {
		t.Fatalf("challenge response = %+v", challenge)
	}

	_, err = f.service.WalletLogin(ctx, WalletLoginRequest{
		ChallengeID: challenge.ChallengeID,
		Address:     "addr_test1qunknown",
		Signature:   "sig",
		PublicKey:   "pubkey",
	})
	if !errors.Is(err, domain.ErrWalletNotLinked) {
		t.Fatalf("proof for unlinked address = %v, want ErrWalletNotLinked", err)
	}

	// A malformed address fails before any challenge is minted.
	f.walletAuth.addressErr = domain.ErrInvalidInput
	if _, err := f.service.GenerateWalletLoginChallenge(ctx, "bogus"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("malformed address = %v, want ErrInvalidInput", err)
	}
}

func TestGenerateWalletChallengeRequiresUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if _, err := f.service.GenerateWalletChallenge(context.Background(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("challenge for missing user = %v, want ErrNotFound", err)
	}

	user := f.register(t, "dev@example.com", "Password123!")
	resp, err := f.service.GenerateWalletChallenge(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("generate challenge: %v", err)
	}
	if resp.ChallengeID == "" || resp.Message == "" {
		t.Fatalf("challenge response = %+v", resp)
	}
}
