package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/repository"
	"github.com/iliyamo/fieldops/internal/utils"
)

type UserInput struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Password   string `json:"password"`
}

type UserPatch struct {
	FullName   *string `json:"full_name"`
	Role       *string `json:"role"`
	Department *string `json:"department"`
	IsActive   *bool   `json:"is_active"`
	Password   *string `json:"password"`
}

type UserFilter struct {
	Role       string
	Department string
	Active     *bool
	Search     string
}

// CreateUser validates in and inserts an active user.  bcryptCost is only
// used when a password is supplied; without one the account cannot log in.
func (s *Service) CreateUser(ctx context.Context, in UserInput, bcryptCost int) (uint64, error) {
	email, err := required("email", in.Email)
	if err != nil {
		return 0, err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return 0, invalid("invalid email %q", email)
	}
	name, err := required("full_name", in.FullName)
	if err != nil {
		return 0, err
	}
	role, err := enumOr("role", in.Role, model.RoleStaff, model.ParseRole, model.Roles)
	if err != nil {
		return 0, err
	}
	u := &model.User{
		Email:        strings.ToLower(email),
		FullName:     name,
		Role:         role,
		Department:   strings.TrimSpace(in.Department),
		IsActive:     true,
		CreationTime: s.nowMillis(),
	}
	if in.Password != "" {
		if u.PasswordHash, err = utils.HashPassword(in.Password, bcryptCost); err != nil {
			return 0, err
		}
	}
	id, err := s.users.Create(ctx, u)
	return id, lift(err, "user", 0)
}

func (s *Service) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	return u, lift(err, "user", id)
}

func (s *Service) UpdateUser(ctx context.Context, id uint64, p UserPatch, bcryptCost int) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return u, lift(err, "user", id)
	}
	if p.FullName != nil {
		if u.FullName, err = required("full_name", *p.FullName); err != nil {
			return u, err
		}
	}
	if p.Role != nil {
		if u.Role, err = enum("role", *p.Role, model.ParseRole, model.Roles); err != nil {
			return u, err
		}
	}
	setTrim(&u.Department, p.Department)
	set(&u.IsActive, p.IsActive)
	if p.Password != nil && *p.Password != "" {
		if u.PasswordHash, err = utils.HashPassword(*p.Password, bcryptCost); err != nil {
			return u, err
		}
	}
	if err := s.users.Update(ctx, &u); err != nil {
		return u, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uint64) error {
	return lift(s.users.Delete(ctx, id), "user", id)
}

func (s *Service) ListUsers(ctx context.Context, f UserFilter) ([]model.User, error) {
	rf := repository.UserFilter{Department: f.Department, Active: f.Active, Search: f.Search}
	if f.Role != "" {
		role, err := enum("role", f.Role, model.ParseRole, model.Roles)
		if err != nil {
			return nil, err
		}
		rf.Role = role
	}
	return s.users.List(ctx, rf)
}

// ListActiveUserIDs returns the ids a broadcast would address right now.
func (s *Service) ListActiveUserIDs(ctx context.Context) ([]uint64, error) {
	return s.users.ActiveIDs(ctx)
}
