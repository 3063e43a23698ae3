package session

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/supp-dex/instance-api/internal/domain"
)

// State is the mutable server-side record for one visitor session. All wallet
// transitions go through the claim/complete/suspend/release methods so that
// the at-most-once funding invariant holds under concurrent requests.
type State struct {
	createdAt time.Time

	mu           sync.Mutex
	wallet       *domain.Wallet
	provisioning bool
	pending      *pendingFunding
}

// pendingFunding records a broadcast funding transaction whose receipt has not
// been observed yet. While it is set, no second funding may be broadcast.
type pendingFunding struct {
	wallet *domain.Wallet
	txHash common.Hash
}

// CreatedAt returns the session creation time
func (s *State) CreatedAt() time.Time {
	return s.createdAt
}

// Wallet returns the attached wallet, or nil if none has been provisioned
func (s *State) Wallet() *domain.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet
}

// Info returns the read-only view of the session
func (s *State) Info() domain.SessionInfo {
	return domain.SessionInfo{CreatedAt: s.createdAt, Wallet: s.Wallet()}
}

// claim atomically moves the session into the provisioning state. It returns
// the existing wallet if one is attached, or reports that another caller holds
// the claim. Exactly one caller observes claimed=true until complete, suspend
// or release is called; that caller also receives any earlier broadcast still
// awaiting its receipt, which it must resolve before funding again.
func (s *State) claim() (wallet *domain.Wallet, pending *pendingFunding, claimed bool, inFlight bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wallet != nil {
		return s.wallet, nil, false, false
	}
	if s.provisioning {
		return nil, nil, false, true
	}
	s.provisioning = true
	return nil, s.pending, true, false
}

// complete attaches the funded wallet and clears the claim
func (s *State) complete(w *domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = w
	s.pending = nil
	s.provisioning = false
}

// suspend drops the claim while remembering the unresolved broadcast, so the
// next claimant re-polls its receipt instead of funding again
func (s *State) suspend(p *pendingFunding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = p
	s.provisioning = false
}

// release drops the claim without attaching a wallet. Only safe when no
// funding transaction of this session can still land.
func (s *State) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.provisioning = false
}

// Store is the backing table for live sessions. The interface exists so the
// in-process table can be swapped for a distributed one without touching
// callers.
type Store interface {
	// Get returns the session for a token if it is live
	Get(token string) (*State, bool)

	// Put stores a session under a token
	Put(token string, s *State)

	// Len returns the number of live sessions
	Len() int
}

// memoryStore keeps sessions in a bounded expiring map. Sessions are evicted
// after the configured TTL or when capacity is exceeded; a funded wallet dies
// with its session.
type memoryStore struct {
	sessions *expirable.LRU[string, *State]
}

// NewMemoryStore creates an in-process session store holding at most maxSessions
// entries, each expiring ttl after creation
func NewMemoryStore(maxSessions int, ttl time.Duration) Store {
	return &memoryStore{
		sessions: expirable.NewLRU[string, *State](maxSessions, nil, ttl),
	}
}

func (m *memoryStore) Get(token string) (*State, bool) {
	return m.sessions.Get(token)
}

func (m *memoryStore) Put(token string, s *State) {
	m.sessions.Add(token, s)
}

func (m *memoryStore) Len() int {
	return m.sessions.Len()
}
