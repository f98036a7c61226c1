package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend/internal/auth"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const handlerTestSecret = "handler-test-secret"

type testEnv struct {
	router       *gin.Engine
	tokens       *auth.TokenService
	userRepo     *memUserRepo
	customerRepo *memCustomerRepo
	mailer       *recordingMailer

	admin    *model.User
	owner    *model.User
	customer *model.User
}

// newTestEnv wires the real services, middleware and routes over in-memory
// stores, seeded with one account per role. The customer has id matching
// env.customer.ID and password "customerpw".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := newMemUserRepo()
	customerRepo := newMemCustomerRepo()
	mailer := &recordingMailer{}
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenService(handlerTestSecret, 15*time.Minute, 15*time.Minute)

	userService := service.NewUserService(userRepo, customerRepo, passthroughTx{}, hasher, nil)
	authService := service.NewAuthService(userRepo, userService, tokens, hasher, mailer, "https://shop.example.com")

	ctx := context.Background()
	seed := func(username, email, phone, password string, role model.Role) *model.User {
		hashed, err := hasher.Hash(password)
		require.NoError(t, err)
		u := &model.User{Username: username, Email: email, Phone: phone, Password: hashed, Role: role, IsActive: true}
		require.NoError(t, userRepo.Create(ctx, u))
		return u
	}
	admin := seed("admin1", "admin@example.com", "1000000001", "adminadmin", model.RoleAdmin)
	owner := seed("oswald", "owner@example.com", "1000000002", "ownerowner", model.RoleOwner)
	customer := seed("carla", "carla@example.com", "1000000003", "customerpw", model.RoleCustomer)
	require.NoError(t, customerRepo.Create(ctx, &model.CustomerProfile{
		UserID:  customer.ID,
		Address: "Main St 1",
		City:    "Springfield",
	}))

	router := gin.New()
	api := router.Group("/")
	NewUserHandler(userService, tokens).RegisterRoutes(api)
	NewAuthHandler(authService).RegisterRoutes(api)

	return &testEnv{
		router:       router,
		tokens:       tokens,
		userRepo:     userRepo,
		customerRepo: customerRepo,
		mailer:       mailer,
		admin:        admin,
		owner:        owner,
		customer:     customer,
	}
}

func (e *testEnv) tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := e.tokens.IssueSession(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "success", envelope.Status)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("CreatesCustomer", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/users", "", gin.H{
			"username": "newbie",
			"email":    "newbie@example.com",
			"phone":    "1000000009",
			"password": "password1",
			"address":  "Oak Ave 2",
			"city":     "Shelbyville",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var user service.UserResponse
		decodeData(t, rec, &user)
		assert.Equal(t, model.RoleCustomer, user.Role)
		assert.True(t, user.IsActive)
		require.NotNil(t, user.Profile)
		assert.Equal(t, "Oak Ave 2", user.Profile.Address)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/users", "", gin.H{
			"username": "carla",
			"email":    "other@example.com",
			"phone":    "1000000009",
			"password": "password1",
			"address":  "Oak Ave 2",
			"city":     "Shelbyville",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/users", "", gin.H{
			"username": "abc", // below minimum length
			"email":    "abc@example.com",
			"phone":    "1000000009",
			"password": "password1",
			"address":  "Oak Ave 2",
			"city":     "Shelbyville",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	t.Run("MissingToken", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/users/1", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		expired := auth.NewTokenService(handlerTestSecret, -time.Minute, time.Minute)
		token, err := expired.IssueSession(env.customer)
		require.NoError(t, err)
		rec := env.do(t, http.MethodGet, "/users/1", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RestoreTokenIsNotASession", func(t *testing.T) {
		restoreToken, err := env.tokens.IssueRestore(env.customer.ID)
		require.NoError(t, err)
		rec := env.do(t, http.MethodGet, "/users/1", restoreToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetUserEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("CustomerReadsSelf", func(t *testing.T) {
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodGet, "/users/3", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var user service.UserResponse
		decodeData(t, rec, &user)
		assert.Equal(t, "carla", user.Username)
		require.NotNil(t, user.Profile)
		assert.Equal(t, "Springfield", user.Profile.City)
	})

	t.Run("CustomerCannotReadOther", func(t *testing.T) {
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodGet, "/users/1", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("OwnerReadsAnyone", func(t *testing.T) {
		token := env.tokenFor(t, env.owner)
		rec := env.do(t, http.MethodGet, "/users/3", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MissingUser", func(t *testing.T) {
		token := env.tokenFor(t, env.admin)
		rec := env.do(t, http.MethodGet, "/users/99", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateUserEndpoint(t *testing.T) {
	t.Run("CustomerCannotUpdateOther", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodPatch, "/users/1", token, gin.H{"email": "steal@example.com"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("CustomerUsernameChangeRejected", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodPatch, "/users/3", token, gin.H{"username": "newname"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		stored, err := env.userRepo.GetByID(context.Background(), env.customer.ID)
		require.NoError(t, err)
		assert.Equal(t, "carla", stored.Username)
	})

	t.Run("CustomerEmailChangeApplied", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodPatch, "/users/3", token, gin.H{"email": "new@example.com"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stored, err := env.userRepo.GetByID(context.Background(), env.customer.ID)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", stored.Email)
	})

	t.Run("CustomerAddressChangeApplied", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodPatch, "/users/3", token, gin.H{"address": "New St 9"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		profile, err := env.customerRepo.GetByUserID(context.Background(), env.customer.ID)
		require.NoError(t, err)
		assert.Equal(t, "New St 9", profile.Address)
	})

	t.Run("AdminChangesRole", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.admin)
		rec := env.do(t, http.MethodPatch, "/users/2", token, gin.H{"role": "CUSTOMER"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stored, err := env.userRepo.GetByID(context.Background(), env.owner.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RoleCustomer, stored.Role)
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.admin)
		rec := env.do(t, http.MethodPatch, "/users/2", token, gin.H{"email": "carla@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeactivateEndpoints(t *testing.T) {
	t.Run("CustomerDeactivatesSelf", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodDelete, "/users/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stored, err := env.userRepo.GetByID(context.Background(), env.customer.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)

		// A deactivated account can no longer sign in.
		login := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "carla", "password": "customerpw"})
		assert.Equal(t, http.StatusUnauthorized, login.Code)
	})

	t.Run("CustomerCannotDeactivateOthers", func(t *testing.T) {
		// DELETE /users/:id is owner/admin only; customers get 403 from the
		// role gate before any policy runs.
		env := newTestEnv(t)
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodDelete, "/users/2", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("OwnerDeactivatesCustomer", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.owner)
		rec := env.do(t, http.MethodDelete, "/users/3", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stored, err := env.userRepo.GetByID(context.Background(), env.customer.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
	})

	t.Run("OwnerCannotDeactivateOwner", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.owner)
		rec := env.do(t, http.MethodDelete, "/users/2", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("AdminIsUntouchable", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.admin)
		rec := env.do(t, http.MethodDelete, "/users/1", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestListEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("CustomerForbidden", func(t *testing.T) {
		token := env.tokenFor(t, env.customer)
		rec := env.do(t, http.MethodGet, "/users", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("OwnerListsActive", func(t *testing.T) {
		token := env.tokenFor(t, env.owner)
		rec := env.do(t, http.MethodGet, "/users", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var users []service.UserResponse
		decodeData(t, rec, &users)
		assert.Len(t, users, 3)
	})

	t.Run("InactiveListIsAdminOnly", func(t *testing.T) {
		ownerToken := env.tokenFor(t, env.owner)
		rec := env.do(t, http.MethodGet, "/users/inactive", ownerToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		adminToken := env.tokenFor(t, env.admin)
		rec = env.do(t, http.MethodGet, "/users/inactive", adminToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCreateOwnerEndpoint(t *testing.T) {
	payload := gin.H{
		"username": "owner2",
		"email":    "owner2@example.com",
		"phone":    "1000000010",
		"password": "ownerpass",
		"address":  "HQ",
		"city":     "Springfield",
	}

	t.Run("AdminCreatesOwner", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.admin)
		rec := env.do(t, http.MethodPost, "/users/create-owner", token, payload)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var user service.UserResponse
		decodeData(t, rec, &user)
		assert.Equal(t, model.RoleOwner, user.Role)
		assert.Nil(t, user.Profile)
	})

	t.Run("OwnerForbidden", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.tokenFor(t, env.owner)
		rec := env.do(t, http.MethodPost, "/users/create-owner", token, payload)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestErrorEnvelope(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, env.customer)
	rec := env.do(t, http.MethodGet, "/users/1", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "error", envelope.Status)
	assert.Equal(t, http.StatusForbidden, envelope.StatusCode)
	assert.NotEmpty(t, envelope.Error)
}
