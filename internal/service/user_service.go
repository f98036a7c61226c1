package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/apperr"
	"backend/internal/auth"
	"backend/internal/model"
	"backend/internal/policy"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=4,max=10"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,numeric,min=10,max=15"`
	Password string `json:"password" binding:"required,min=8"`
	Address  string `json:"address" binding:"required,max=100"`
	City     string `json:"city" binding:"required,max=50"`
	Location string `json:"location" binding:"omitempty,max=50"`
}

type UpdateUserRequest struct {
	Username string `json:"username" binding:"omitempty,min=4,max=10"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone" binding:"omitempty,numeric,min=10,max=15"`
	Password string `json:"password" binding:"omitempty,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=ADMIN OWNER CUSTOMER"`
	Address  string `json:"address" binding:"omitempty,max=100"`
	City     string `json:"city" binding:"omitempty,max=50"`
	Location string `json:"location" binding:"omitempty,max=50"`
}

// Requester identifies the authenticated caller, as decoded from the session
// token by the middleware.
type Requester struct {
	ID   uint
	Role model.Role
}

// ProfileResponse mirrors CustomerProfile for API output
type ProfileResponse struct {
	Address  string `json:"address"`
	City     string `json:"city"`
	Location string `json:"location,omitempty"`
}

// UserResponse returns a User without exposing the password hash
type UserResponse struct {
	ID        uint             `json:"id"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	Role      model.Role       `json:"role"`
	IsActive  bool             `json:"is_active"`
	CreatedAt string           `json:"created_at"`
	Profile   *ProfileResponse `json:"profile,omitempty"`
}

// UserService orchestrates the account lifecycle: registration, role-gated
// creation, profile update, soft-deactivation and restoration.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	CreateOwner(ctx context.Context, req RegisterRequest, requesterRole model.Role) (*UserResponse, error)
	// CreateAdminIfNotExists is used only by startup seeding, never by the
	// HTTP boundary.
	CreateAdminIfNotExists(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	GetByID(ctx context.Context, targetID uint, requester Requester) (*UserResponse, error)
	Update(ctx context.Context, targetID uint, req UpdateUserRequest, requester Requester) (*UserResponse, error)
	Deactivate(ctx context.Context, targetID uint, requester Requester) error
	Restore(ctx context.Context, subjectID uint) (*UserResponse, error)
	ListActive(ctx context.Context) ([]UserResponse, error)
	ListInactive(ctx context.Context) ([]UserResponse, error)
	ListAll(ctx context.Context) ([]UserResponse, error)
}

type userService struct {
	userRepo     repository.UserRepository
	customerRepo repository.CustomerRepository
	txManager    repository.TransactionManager
	hasher       *auth.PasswordHasher
	hub          *ws.Hub // optional, nil in tests
}

// NewUserService returns a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	customerRepo repository.CustomerRepository,
	txManager repository.TransactionManager,
	hasher *auth.PasswordHasher,
	hub *ws.Hub,
) UserService {
	return &userService{
		userRepo:     userRepo,
		customerRepo: customerRepo,
		txManager:    txManager,
		hasher:       hasher,
		hub:          hub,
	}
}

func mapUserResponse(user *model.User) *UserResponse {
	res := &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.CustomerProfile != nil {
		res.Profile = &ProfileResponse{
			Address:  user.CustomerProfile.Address,
			City:     user.CustomerProfile.City,
			Location: user.CustomerProfile.Location,
		}
	}
	return res
}

func (s *userService) broadcast(event string, userID uint) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  map[string]interface{}{"user_id": userID},
	})
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

// checkUnique is the friendly fast-path; the unique indexes on username and
// email remain the authority under concurrent registration.
func (s *userService) checkUnique(ctx context.Context, username, email string, excludeID uint) error {
	if existing, err := s.userRepo.GetByUsername(ctx, username); err == nil && existing.ID != excludeID {
		return apperr.ErrDuplicateUsername
	}
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing.ID != excludeID {
		return apperr.ErrDuplicateEmail
	}
	return nil
}

// translateDuplicate turns a unique-index violation into the field-specific
// duplicate error by re-querying which value collided.
func (s *userService) translateDuplicate(ctx context.Context, err error, username string) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if _, lookupErr := s.userRepo.GetByUsername(ctx, username); lookupErr == nil {
		return apperr.ErrDuplicateUsername
	}
	return apperr.ErrDuplicateEmail
}

func (s *userService) createAccount(ctx context.Context, req RegisterRequest, role model.Role) (*model.User, error) {
	if err := s.checkUnique(ctx, req.Username, req.Email, 0); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: hashed,
		Role:     role,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, s.translateDuplicate(ctx, err, req.Username)
	}
	return user, nil
}

// Register creates a CUSTOMER account and its profile as one transaction; a
// profile failure rolls the account back rather than leaving a half-created
// pair behind.
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	var user *model.User
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		created, err := s.createAccount(txCtx, req, model.RoleCustomer)
		if err != nil {
			return err
		}

		profile := &model.CustomerProfile{
			UserID:   created.ID,
			Address:  req.Address,
			City:     req.City,
			Location: req.Location,
		}
		if err := s.customerRepo.Create(txCtx, profile); err != nil {
			return fmt.Errorf("failed to create customer profile: %w", err)
		}
		created.CustomerProfile = profile
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapUserResponse(user), nil
}

func (s *userService) CreateOwner(ctx context.Context, req RegisterRequest, requesterRole model.Role) (*UserResponse, error) {
	if !policy.Allow(requesterRole, 0, 0, "", policy.OpCreateOwner) {
		return nil, fmt.Errorf("only admins can create an owner: %w", apperr.ErrForbidden)
	}

	user, err := s.createAccount(ctx, req, model.RoleOwner)
	if err != nil {
		return nil, err
	}
	return mapUserResponse(user), nil
}

func (s *userService) CreateAdminIfNotExists(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("admin already exists: %w", apperr.ErrDuplicateUsername)
	}

	user, err := s.createAccount(ctx, req, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return mapUserResponse(user), nil
}

func (s *userService) GetByID(ctx context.Context, targetID uint, requester Requester) (*UserResponse, error) {
	// readOne does not depend on the target's role, so deny before touching
	// the store and leak nothing about the target's existence.
	if !policy.Allow(requester.Role, requester.ID, targetID, "", policy.OpReadOne) {
		return nil, fmt.Errorf("access denied: %w", apperr.ErrForbidden)
	}

	user, err := s.userRepo.GetActiveByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}

	if user.Role == model.RoleCustomer {
		if profile, err := s.customerRepo.GetByUserID(ctx, user.ID); err == nil {
			user.CustomerProfile = profile
		}
	}
	return mapUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, targetID uint, req UpdateUserRequest, requester Requester) (*UserResponse, error) {
	if !policy.Allow(requester.Role, requester.ID, targetID, "", policy.OpUpdate) {
		return nil, fmt.Errorf("access denied: %w", apperr.ErrForbidden)
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}

	fields := make(map[string]interface{})
	if req.Username != "" {
		fields["username"] = req.Username
	}
	if req.Email != "" {
		fields["email"] = req.Email
	}
	if req.Phone != "" {
		fields["phone"] = req.Phone
	}
	if req.Password != "" {
		fields["password"] = req.Password
	}
	if req.Role != "" {
		fields["role"] = req.Role
	}
	if req.Address != "" {
		fields["address"] = req.Address
	}
	if req.City != "" {
		fields["city"] = req.City
	}
	if req.Location != "" {
		fields["location"] = req.Location
	}

	fields, err = policy.NarrowUpdateFields(requester.Role, fields)
	if err != nil {
		return nil, err
	}

	if username, ok := fields["username"].(string); ok && username != user.Username {
		if existing, lookupErr := s.userRepo.GetByUsername(ctx, username); lookupErr == nil && existing.ID != targetID {
			return nil, apperr.ErrDuplicateUsername
		}
	}
	if email, ok := fields["email"].(string); ok && email != user.Email {
		if existing, lookupErr := s.userRepo.GetByEmail(ctx, email); lookupErr == nil && existing.ID != targetID {
			return nil, apperr.ErrDuplicateEmail
		}
	}

	if plain, ok := fields["password"].(string); ok {
		hashed, hashErr := s.hasher.Hash(plain)
		if hashErr != nil {
			return nil, fmt.Errorf("failed to hash password: %w", hashErr)
		}
		fields["password"] = hashed
	}
	if role, ok := fields["role"].(string); ok && !model.Role(role).Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, apperr.ErrInvalidInput)
	}

	// Split profile columns off the user columns; they live on the customer
	// profile row.
	profileFields := make(map[string]string)
	for _, key := range []string{"address", "city", "location"} {
		if v, ok := fields[key].(string); ok {
			profileFields[key] = v
			delete(fields, key)
		}
	}
	if len(profileFields) > 0 && user.Role != model.RoleCustomer {
		// Address data only exists for customers; for other roles these
		// fields have nowhere to go.
		if len(fields) == 0 {
			return nil, apperr.ErrNoUpdatableFields
		}
		profileFields = nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if len(fields) > 0 {
			if updateErr := s.userRepo.UpdateFields(txCtx, targetID, fields); updateErr != nil {
				return s.translateDuplicate(txCtx, updateErr, user.Username)
			}
		}
		if len(profileFields) > 0 {
			profile, profErr := s.customerRepo.GetByUserID(txCtx, targetID)
			if profErr != nil {
				return fmt.Errorf("customer profile missing: %w", apperr.ErrNotFound)
			}
			if v, ok := profileFields["address"]; ok {
				profile.Address = v
			}
			if v, ok := profileFields["city"]; ok {
				profile.City = v
			}
			if v, ok := profileFields["location"]; ok {
				profile.Location = v
			}
			if saveErr := s.customerRepo.Save(txCtx, profile); saveErr != nil {
				return saveErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}
	if updated.Role == model.RoleCustomer {
		if profile, profErr := s.customerRepo.GetByUserID(ctx, targetID); profErr == nil {
			updated.CustomerProfile = profile
		}
	}
	return mapUserResponse(updated), nil
}

// Deactivate soft-deletes an account. Deactivating an already-inactive
// account succeeds silently; restoration is the guarded direction.
func (s *userService) Deactivate(ctx context.Context, targetID uint, requester Requester) error {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}

	if !policy.Allow(requester.Role, requester.ID, targetID, user.Role, policy.OpDeactivate) {
		if user.Role == model.RoleAdmin {
			return fmt.Errorf("admin accounts cannot be deactivated: %w", apperr.ErrForbidden)
		}
		return fmt.Errorf("not allowed to deactivate this account: %w", apperr.ErrForbidden)
	}

	if err := s.userRepo.UpdateFields(ctx, targetID, map[string]interface{}{"is_active": false}); err != nil {
		return err
	}
	s.broadcast("user.deactivated", targetID)
	return nil
}

func (s *userService) Restore(ctx context.Context, subjectID uint) (*UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}
	if user.IsActive {
		return nil, apperr.ErrAlreadyActive
	}

	if err := s.userRepo.UpdateFields(ctx, subjectID, map[string]interface{}{"is_active": true}); err != nil {
		return nil, err
	}
	user.IsActive = true
	s.broadcast("user.restored", subjectID)
	return mapUserResponse(user), nil
}

func (s *userService) list(ctx context.Context, active *bool) ([]UserResponse, error) {
	users, err := s.userRepo.List(ctx, active)
	if err != nil {
		return nil, err
	}
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapUserResponse(&users[i]))
	}
	return responses, nil
}

func (s *userService) ListActive(ctx context.Context) ([]UserResponse, error) {
	active := true
	return s.list(ctx, &active)
}

func (s *userService) ListInactive(ctx context.Context) ([]UserResponse, error) {
	active := false
	return s.list(ctx, &active)
}

func (s *userService) ListAll(ctx context.Context) ([]UserResponse, error) {
	return s.list(ctx, nil)
}
