package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/gogotex/secrets/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() (*Service, *MemoryUserRepository) {
	repo := NewMemoryUserRepository()
	return NewService(repo).WithCost(bcrypt.MinCost), repo
}

func TestCreateAccountAndVerify_RoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, "alice", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.NotEqual(t, "p1", created.PasswordHash)
	assert.True(t, strings.HasPrefix(created.PasswordHash, "$2"))

	first, err := svc.Verify(ctx, "alice", "p1")
	require.NoError(t, err)
	second, err := svc.Verify(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, first.ID)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateAccount_Duplicate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "alice", "p1")
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, "alice", "other")
	require.ErrorIs(t, err, ErrDuplicateAccount)
	assert.Equal(t, 1, repo.Len())

	// the original credentials keep working
	_, err = svc.Verify(ctx, "alice", "p1")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "alice", "other")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateAccount_SaltsEachHash(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a, err := svc.CreateAccount(ctx, "a", "same-password")
	require.NoError(t, err)
	b, err := svc.CreateAccount(ctx, "b", "same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a.PasswordHash, b.PasswordHash)
}

func TestCreateAccount_InvalidInput(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	cases := map[string][2]string{
		"empty username": {"", "pw"},
		"blank username": {"   ", "pw"},
		"empty password": {"bob", ""},
		"long password":  {"bob", strings.Repeat("x", 73)},
		"long username":  {strings.Repeat("u", 65), "pw"},
		// 40 runes, 80 bytes
		"multibyte password over limit": {"bob", strings.Repeat("é", 40)},
		"73 bytes":                      {"bob", strings.Repeat("é", 36) + "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, in[0], in[1])
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, repo.Len())
}

func TestCreateAccount_PasswordByteLimit(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pw := strings.Repeat("é", 36)
	require.Len(t, pw, 72)
	_, err := svc.CreateAccount(ctx, "bob", pw)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "bob", pw)
	require.NoError(t, err)
}

func TestVerify_UnknownUserStillHashes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, _, err := svc.FindOrCreateByGoogleID(ctx, "google-only")
	require.NoError(t, err)
	require.Nil(t, svc.dummy)

	_, err = svc.Verify(ctx, "mallory", "p1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.NotNil(t, svc.dummy)
	cost, err := bcrypt.Cost(svc.dummy)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestVerify_FailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateAccount(ctx, "alice", "p1")
	require.NoError(t, err)
	_, _, err = svc.FindOrCreateByGoogleID(ctx, "google-only")
	require.NoError(t, err)

	_, wrongPw := svc.Verify(ctx, "alice", "nope")
	_, unknown := svc.Verify(ctx, "mallory", "p1")
	_, empty := svc.Verify(ctx, "", "")

	require.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	require.ErrorIs(t, unknown, ErrInvalidCredentials)
	require.ErrorIs(t, empty, ErrInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
}

func TestFindOrCreateByGoogleID_ReusesRecord(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	u1, created, err := svc.FindOrCreateByGoogleID(ctx, "g-123")
	require.NoError(t, err)
	assert.True(t, created)
	u2, created, err := svc.FindOrCreateByGoogleID(ctx, "g-123")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u1.ID, u2.ID)
	assert.Equal(t, 1, repo.Len())

	got, err := svc.GetByID(ctx, u1.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "g-123", got.GoogleID)
	assert.False(t, got.HasLocalCredentials())

	_, _, err = svc.FindOrCreateByGoogleID(ctx, "")
	require.Error(t, err)
}

func TestFindOrCreateByGoogleID_Concurrent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, _, err := svc.FindOrCreateByGoogleID(ctx, "g-race")
			if err == nil {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, repo.Len())
}

type failingRepo struct{ err error }

func (f *failingRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	return nil, f.err
}
func (f *failingRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, f.err
}
func (f *failingRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, f.err
}
func (f *failingRepo) FindOrCreateByGoogleID(ctx context.Context, googleID string) (*models.User, bool, error) {
	return nil, false, f.err
}

func TestService_PropagatesStorageErrors(t *testing.T) {
	svc := NewService(&failingRepo{err: ErrStorageUnavailable}).WithCost(bcrypt.MinCost)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "alice", "p1")
	require.True(t, errors.Is(err, ErrStorageUnavailable))
	_, err = svc.Verify(ctx, "alice", "p1")
	require.True(t, errors.Is(err, ErrStorageUnavailable))
}
