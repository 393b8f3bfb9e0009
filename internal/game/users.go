package game

import (
	"context"
	"errors"
	"net/http"
)

// RegisterUser creates an account with an already-hashed password. The
// username must be free; the very first account is granted the admin
// role.
func (s *Service) RegisterUser(ctx context.Context, username, passwordHash string) (User, error) {
	_, err := s.store.UserByUsername(ctx, username)
	if err == nil {
		return User{}, NewError(CodeRegistrationFailed, http.StatusBadRequest)
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	adminExists, err := s.store.AdminExists(ctx)
	if err != nil {
		return User{}, err
	}
	role := RoleUser
	if !adminExists {
		role = RoleAdmin
	}

	u := User{Username: username, Password: passwordHash, Role: role}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return User{}, err
	}
	s.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// UserByUsername resolves an account for login. The password hash in the
// returned User is for the caller to verify; it never reaches a response.
func (s *Service) UserByUsername(ctx context.Context, username string) (User, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, NewError(CodeUserNotFound, http.StatusNotFound)
		}
		return User{}, err
	}
	return u, nil
}

func (s *Service) UserByID(ctx context.Context, id int64) (User, error) {
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, NewError(CodeUserNotFound, http.StatusNotFound)
		}
		return User{}, err
	}
	return u, nil
}

// DeleteUser removes the account with its progression and inventory.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.store.UserByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(CodeUserNotFound, http.StatusNotFound)
		}
		return err
	}

	if err := s.store.DeleteInventoryByUserID(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteProgressionByUserID(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", "user_id", id)
	return nil
}
