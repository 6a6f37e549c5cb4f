package principals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
)

type memRepo struct {
	nextID     int64
	principals map[int64]Principal
	byEmail    map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{principals: make(map[int64]Principal), byEmail: make(map[string]int64)}
}

func (r *memRepo) List(_ context.Context) ([]Principal, error) {
	out := make([]Principal, 0, len(r.principals))
	for _, p := range r.principals {
		out = append(out, p)
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, id int64) (Principal, error) {
	p, ok := r.principals[id]
	if !ok {
		return Principal{}, accesscontrol.ErrPrincipalNotFound
	}
	return p, nil
}

func (r *memRepo) Create(_ context.Context, kind accesscontrol.PrincipalKind, email, name, passwordHash string) (Principal, error) {
	if _, ok := r.byEmail[email]; ok {
		return Principal{}, ErrDuplicateEmail
	}
	r.nextID++
	p := Principal{ID: r.nextID, Kind: kind, Email: email, Name: name, PasswordHash: passwordHash, IsActive: true}
	r.principals[p.ID] = p
	r.byEmail[email] = p.ID
	return p, nil
}

func (r *memRepo) SetActive(_ context.Context, id int64, active bool) error {
	p, ok := r.principals[id]
	if !ok {
		return accesscontrol.ErrPrincipalNotFound
	}
	p.IsActive = active
	r.principals[id] = p
	return nil
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), accesscontrol.KindUser, " Staff@Leasecraft.Local ", "Staff", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "staff@leasecraft.local", p.Email)
	require.NotEqual(t, "s3cret-pass", p.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("s3cret-pass")))
}

func TestCreateValidatesKind(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Create(context.Background(), accesscontrol.PrincipalKind("robot"), "a@b.c", "", "password")
	require.Error(t, err)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, accesscontrol.KindCustomer, "c@leasecraft.local", "", "password")
	require.NoError(t, err)
	_, err = svc.Create(ctx, accesscontrol.KindCustomer, "C@leasecraft.LOCAL", "", "password")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestActivateDeactivate(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.Create(ctx, accesscontrol.KindUser, "u@leasecraft.local", "", "password")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, p.ID))
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.NoError(t, svc.Activate(ctx, p.ID))
	got, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)

	require.ErrorIs(t, svc.Deactivate(ctx, 999), accesscontrol.ErrPrincipalNotFound)
}
