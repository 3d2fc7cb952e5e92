package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AnTengye/bettertender/backend/config"
	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Authenticate for unknown users,
// wrong passwords and inactive accounts alike
var ErrInvalidCredentials = errors.New("invalid email or password")

// selfServiceRoles are the roles a user may pick when registering.
// Admin and auditor accounts come from the bootstrap configuration.
var selfServiceRoles = map[model.Role]bool{
	model.RoleIssuer: true,
	model.RoleBidder: true,
}

// Registration is the input for creating an account
type Registration struct {
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// UserService manages accounts and credential checks
type UserService struct {
	store  *Store
	ledger *Ledger
	cost   int
	now    func() time.Time
}

func NewUserService(store *Store, ledger *Ledger, cfg *config.AuthConfig) *UserService {
	cost := bcrypt.DefaultCost
	if cfg != nil && cfg.BcryptCost >= bcrypt.MinCost && cfg.BcryptCost <= bcrypt.MaxCost {
		cost = cfg.BcryptCost
	}
	return &UserService{store: store, ledger: ledger, cost: cost, now: time.Now}
}

// Register creates a self-service account
func (s *UserService) Register(ctx context.Context, in Registration) (*model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleBidder
	}
	if !selfServiceRoles[in.Role] {
		return nil, invalidInput("role %q cannot be self-registered", in.Role)
	}
	return s.create(ctx, in, false)
}

// Bootstrap seeds the configured accounts when no user exists yet
func (s *UserService) Bootstrap(ctx context.Context, users []config.User) error {
	if len(users) == 0 {
		return nil
	}
	n, err := s.store.Queries().CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, u := range users {
		role := model.Role(u.Role)
		if !role.Valid() {
			return fmt.Errorf("bootstrap user %s: %w", u.Email, invalidInput("unknown role %q", u.Role))
		}
		if _, err := s.create(ctx, Registration{Email: u.Email, FullName: u.FullName, Password: u.Password, Role: role}, true); err != nil {
			return fmt.Errorf("bootstrap user %s: %w", u.Email, err)
		}
	}
	logger.Info(ctx, "bootstrap users created", "count", len(users))
	return nil
}

func (s *UserService) create(ctx context.Context, in Registration, bootstrap bool) (*model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, invalidInput("a valid email is required")
	}
	if in.Password == "" {
		return nil, invalidInput("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *model.User
	err = s.store.InTx(ctx, func(q *Queries) error {
		user = &model.User{
			Email:        in.Email,
			FullName:     in.FullName,
			PasswordHash: string(hash),
			Role:         in.Role,
			IsActive:     true,
			CreatedAt:    s.now().UTC(),
		}
		if err := q.InsertUser(ctx, user); err != nil {
			return err
		}
		rec := AuditRecord{
			Action:       model.ActionUserRegister,
			ResourceType: model.ResourceUser,
			ResourceID:   strconv.FormatInt(user.ID, 10),
			Payload:      map[string]any{"email": user.Email, "role": string(user.Role)},
		}
		if bootstrap {
			rec.Payload["bootstrap"] = true
		} else {
			rec.ActorID = &user.ID
		}
		_, err := s.ledger.Append(ctx, q, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials and records the login
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.Queries().GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	err = s.store.InTx(ctx, func(q *Queries) error {
		_, err := s.ledger.Append(ctx, q, AuditRecord{
			ActorID:      &user.ID,
			Action:       model.ActionUserLogin,
			ResourceType: model.ResourceUser,
			ResourceID:   strconv.FormatInt(user.ID, 10),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.store.Queries().GetUser(ctx, id)
}
