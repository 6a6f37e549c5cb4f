package principals

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
)

// RepositoryPort defines data access methods for principals.
type RepositoryPort interface {
	List(ctx context.Context) ([]Principal, error)
	Get(ctx context.Context, id int64) (Principal, error)
	Create(ctx context.Context, kind accesscontrol.PrincipalKind, email, name, passwordHash string) (Principal, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles principal account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all principals.
func (s *Service) List(ctx context.Context) ([]Principal, error) {
	return s.repo.List(ctx)
}

// Get fetches a principal by ID.
func (s *Service) Get(ctx context.Context, id int64) (Principal, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a principal account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, kind accesscontrol.PrincipalKind, email, name, password string) (Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return Principal{}, errors.New("principals: email required")
	}
	if kind != accesscontrol.KindUser && kind != accesscontrol.KindCustomer {
		return Principal{}, errors.New("principals: kind must be user or customer")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Principal{}, err
	}
	return s.repo.Create(ctx, kind, email, strings.TrimSpace(name), string(hash))
}

// Activate reenables a principal account.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}

// Deactivate disables a principal account; resolution then yields the empty
// set no matter what roles or overrides the account still carries.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}
