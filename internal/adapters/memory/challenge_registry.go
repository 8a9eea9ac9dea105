package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
)

// ChallengeRegistry is the process-wide store of short-lived wallet
// challenges. It is constructed once at bootstrap and injected everywhere a
// challenge is issued or consumed, so the expiry sweep runs exactly once per
// process regardless of how many services share it.
type ChallengeRegistry struct {
	mu    sync.Mutex
	items map[string]domain.WalletChallenge

	ttl           time.Duration
	sweepInterval time.Duration
	nowFn         func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewChallengeRegistry starts the registry and its background expiry sweep.
// Close must be called on shutdown to stop the sweep goroutine.
func NewChallengeRegistry(ttl, sweepInterval time.Duration) *ChallengeRegistry {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	r := &ChallengeRegistry{
		items:         make(map[string]domain.WalletChallenge),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		nowFn:         func() time.Time { return time.Now().UTC() },
		done:          make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Generate creates a unique challenge whose message embeds the id, user, and
// issue time the external wallet is expected to sign.
func (r *ChallengeRegistry) Generate(userID uuid.UUID) domain.WalletChallenge {
	now := r.nowFn()
	id := uuid.NewString()
	challenge := domain.WalletChallenge{
		ChallengeID: id,
		UserID:      userID,
		Message: fmt.Sprintf(
			"Sign this message to verify wallet ownership.\n\nChallenge: %s\nUser: %s\nIssued At: %s",
			id, userID, now.Format(time.RFC3339),
		),
		ExpiresAt: now.Add(r.ttl),
	}

	r.mu.Lock()
	r.items[id] = challenge
	r.mu.Unlock()
	return challenge
}

// Consume atomically removes and returns the challenge. A present-but-expired
// entry is deleted and reported as not found, identical to an unknown id, so
// a challenge can never be used twice and expiry is not observable.
func (r *ChallengeRegistry) Consume(challengeID string) (domain.WalletChallenge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	challenge, ok := r.items[challengeID]
	if !ok {
		return domain.WalletChallenge{}, false
	}
	delete(r.items, challengeID)
	if !challenge.ExpiresAt.After(r.nowFn()) {
		return domain.WalletChallenge{}, false
	}
	return challenge, true
}

// Len reports the current number of stored challenges, expired or not.
func (r *ChallengeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Close stops the background sweep. Safe to call more than once.
func (r *ChallengeRegistry) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *ChallengeRegistry) sweepLoop() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.sweepExpired()
		}
	}
}

// sweepExpired bounds memory growth from abandoned challenges independent of
// consumption traffic.
func (r *ChallengeRegistry) sweepExpired() {
	now := r.nowFn()
	r.mu.Lock()
	for id, challenge := range r.items {
		if !challenge.ExpiresAt.After(now) {
			delete(r.items, id)
		}
	}
	r.mu.Unlock()
}
