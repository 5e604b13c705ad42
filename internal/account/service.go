package account

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Service manages account lifecycle and login checks.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new account with a hashed password.
func (s *Service) Create(ctx context.Context, idNumber, fullName, password, role string) (Account, error) {
	idNumber = strings.TrimSpace(idNumber)
	fullName = strings.TrimSpace(fullName)
	if idNumber == "" || fullName == "" || password == "" {
		return Account{}, errors.New("id number, full name and password required")
	}
	switch role {
	case RoleStudent, RoleInstructor, RoleAdmin:
	default:
		return Account{}, errors.New("unknown role: " + role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	return s.repo.Insert(ctx, Account{
		IDNumber:     idNumber,
		FullName:     fullName,
		PasswordHash: string(hash),
		Role:         role,
	})
}

// Authenticate checks an ID number and password pair. Unknown IDs and wrong
// passwords both come back as ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, idNumber, password string) (Account, error) {
	acct, err := s.repo.ByIDNumber(ctx, idNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// Get returns an account by primary id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, id)
}

// ByIDNumber returns an account by institution ID number.
func (s *Service) ByIDNumber(ctx context.Context, idNumber string) (Account, error) {
	return s.repo.ByIDNumber(ctx, idNumber)
}

// List returns accounts with the given role; empty role means all.
func (s *Service) List(ctx context.Context, role string) ([]Account, error) {
	return s.repo.List(ctx, role)
}

// Search matches name or ID number substrings.
func (s *Service) Search(ctx context.Context, role, query string) ([]Account, error) {
	return s.repo.Search(ctx, role, query)
}

// Update changes the ID number and display name of an account.
func (s *Service) Update(ctx context.Context, id, idNumber, fullName string) (Account, error) {
	idNumber = strings.TrimSpace(idNumber)
	fullName = strings.TrimSpace(fullName)
	if idNumber == "" || fullName == "" {
		return Account{}, errors.New("id number and full name required")
	}
	acct, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	acct.IDNumber = idNumber
	acct.FullName = fullName
	return s.repo.Update(ctx, acct)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
