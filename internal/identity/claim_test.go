package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alizand/leadwire/internal/model"
	"github.com/stretchr/testify/require"
)

// memStore mimics the MySQL repository: Assign is a compare-and-set that
// only wins while the identity is still unassigned.
type memStore struct {
	mu     sync.Mutex
	idents map[int64]*model.SenderIdentity
}

func newMemStore(n int) *memStore {
	s := &memStore{idents: make(map[int64]*model.SenderIdentity)}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		s.idents[int64(i)] = &model.SenderIdentity{
			ID:        int64(i),
			Address:   "+1555010000" + string(rune('0'+i)),
			Verified:  true,
			Status:    model.IdentityActive,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return s
}

func (s *memStore) Assigned(_ context.Context, tenantID int64) (*model.SenderIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.idents {
		if id.AssignedTenant != nil && *id.AssignedTenant == tenantID {
			cp := *id
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) OldestAvailable(_ context.Context) (*model.SenderIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *model.SenderIdentity
	for _, id := range s.idents {
		if id.AssignedTenant != nil || id.Status != model.IdentityActive {
			continue
		}
		if best == nil || id.CreatedAt.Before(best.CreatedAt) {
			best = id
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *memStore) Assign(_ context.Context, identityID, tenantID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.idents[identityID]
	if !ok || id.AssignedTenant != nil || id.Status != model.IdentityActive {
		return false, nil
	}
	id.AssignedTenant = &tenantID
	id.AssignedAt = &at
	return true, nil
}

func (s *memStore) Release(_ context.Context, identityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.idents[identityID]; ok {
		id.AssignedTenant = nil
	}
	return nil
}

func (s *memStore) holders() map[int64]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int64)
	for _, id := range s.idents {
		if id.AssignedTenant != nil {
			out[id.ID] = *id.AssignedTenant
		}
	}
	return out
}

func TestClaimAssignsOldest(t *testing.T) {
	store := newMemStore(3)
	svc := New(store, nil)

	got, err := svc.Claim(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.ID)
	require.NotNil(t, got.AssignedTenant)
	require.Equal(t, int64(42), *got.AssignedTenant)
}

func TestClaimIdempotent(t *testing.T) {
	store := newMemStore(3)
	svc := New(store, nil)

	first, err := svc.Claim(context.Background(), 42)
	require.NoError(t, err)

	second, err := svc.Claim(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, store.holders(), 1)
}

func TestClaimPoolExhausted(t *testing.T) {
	store := newMemStore(1)
	svc := New(store, nil)

	_, err := svc.Claim(context.Background(), 1)
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), 2)
	require.ErrorIs(t, err, ErrNoneAvailable)
}

func TestClaimConcurrentNoDoubleHold(t *testing.T) {
	const identities = 4
	const tenants = 12

	store := newMemStore(identities)
	svc := New(store, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	won, none := 0, 0
	for i := 1; i <= tenants; i++ {
		wg.Add(1)
		go func(tenantID int64) {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), tenantID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case err == ErrNoneAvailable || err == ErrContention:
				none++
			default:
				t.Errorf("tenant %d: %v", tenantID, err)
			}
		}(int64(i))
	}
	wg.Wait()

	holders := store.holders()
	require.Equal(t, won, len(holders))
	require.LessOrEqual(t, won, identities)
	require.Equal(t, tenants, won+none)

	// no tenant ended up holding two identities
	seen := make(map[int64]bool)
	for _, tenant := range holders {
		require.False(t, seen[tenant], "tenant %d holds two identities", tenant)
		seen[tenant] = true
	}
}

func TestReleaseReturnsToPool(t *testing.T) {
	store := newMemStore(1)
	svc := New(store, nil)

	_, err := svc.Claim(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, svc.Release(context.Background(), 1))
	require.Empty(t, store.holders())

	got, err := svc.Claim(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), *got.AssignedTenant)
}

func TestReleaseWithoutHoldIsNoop(t *testing.T) {
	store := newMemStore(1)
	svc := New(store, nil)
	require.NoError(t, svc.Release(context.Background(), 9))
}
