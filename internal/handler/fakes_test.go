package handler

import (
	"context"
	"fmt"
	"sync"

	"backend/internal/apperr"
	"backend/internal/model"

	"gorm.io/gorm"
)

var errMailDown = fmt.Errorf("%w: smtp unreachable", apperr.ErrMailDelivery)

// memUserRepo is an in-memory UserRepository for handler tests, so requests
// run through the real service and middleware without a database.
type memUserRepo struct {
	mu     sync.Mutex
	users  map[uint]*model.User
	nextID uint
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uint]*model.User), nextID: 1}
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = r.nextID
	r.nextID++
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u := *stored
	return &u, nil
}

func (r *memUserRepo) GetActiveByID(ctx context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok || !stored.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	u := *stored
	return &u, nil
}

func (r *memUserRepo) GetActiveByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.users {
		if stored.Username == username && stored.IsActive {
			u := *stored
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.users {
		if stored.Username == username {
			u := *stored
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.users {
		if stored.Email == email {
			u := *stored
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) List(ctx context.Context, active *bool) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, stored := range r.users {
		if active != nil && stored.IsActive != *active {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (r *memUserRepo) Save(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memUserRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "username":
			stored.Username = value.(string)
		case "email":
			stored.Email = value.(string)
		case "phone":
			stored.Phone = value.(string)
		case "password":
			stored.Password = value.(string)
		case "role":
			stored.Role = model.Role(value.(string))
		case "is_active":
			stored.IsActive = value.(bool)
		}
	}
	return nil
}

// memCustomerRepo keeps customer profiles keyed by user id.
type memCustomerRepo struct {
	mu       sync.Mutex
	profiles map[uint]*model.CustomerProfile
	nextID   uint
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{profiles: make(map[uint]*model.CustomerProfile), nextID: 1}
}

func (r *memCustomerRepo) Create(ctx context.Context, profile *model.CustomerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile.ID = r.nextID
	r.nextID++
	stored := *profile
	r.profiles[profile.UserID] = &stored
	return nil
}

func (r *memCustomerRepo) GetByUserID(ctx context.Context, userID uint) (*model.CustomerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	p := *stored
	return &p, nil
}

func (r *memCustomerRepo) Save(ctx context.Context, profile *model.CustomerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *profile
	r.profiles[profile.UserID] = &stored
	return nil
}

// passthroughTx runs the callback on the caller's context; the in-memory
// repositories have nothing transactional to coordinate.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// recordingMailer captures the last message instead of dialing SMTP.
type recordingMailer struct {
	mu      sync.Mutex
	to      string
	subject string
	body    string
	fail    error
}

func (m *recordingMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.to = to
	m.subject = subject
	m.body = htmlBody
	return nil
}

func (m *recordingMailer) lastBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.body
}
