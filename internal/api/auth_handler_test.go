package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"joblink/internal/auth"
	"joblink/internal/config"
	"joblink/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// 不可达的 Redis 客户端：登录限流在 Redis 不可用时必须放行。
func newDeadRedis(t *testing.T) *redis.Client {
	t.Helper()
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
}

func newAuthHandler(t *testing.T, db *gorm.DB) *AuthHandler {
	t.Helper()
	return &AuthHandler{
		db:          db,
		redis:       newDeadRedis(t),
		login:       config.LoginConfig{RateLimitPerHour: 10, LockThreshold: 5},
		cookieName:  "joblink_session",
		development: true,
	}
}

func postJSON(t *testing.T, handler gin.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

func validJobSeekerPayload() map[string]any {
	return map[string]any{
		"firstName":       "Jane",
		"lastName":        "Doe",
		"email":           "jane@mail.test",
		"phoneNumber":     "+256712345678",
		"password":        "secret1234",
		"confirmPassword": "secret1234",
		"agreeToTerms":    true,
	}
}

func TestRegisterJobSeekerCreatesAccountAndProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := newAuthHandler(t, db)

	w := postJSON(t, h.RegisterJobSeeker, "/api/auth/register/jobseeker", validJobSeekerPayload())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	var user database.User
	if err := db.Where("email = ?", "jane@mail.test").First(&user).Error; err != nil {
		t.Fatalf("expected user created: %v", err)
	}
	if user.Role != database.RoleJobSeeker {
		t.Fatalf("expected JOB_SEEKER role, got %s", user.Role)
	}

	var profile database.JobSeekerProfile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("expected default profile: %v", err)
	}
	if profile.ProfileType != database.ProfileTypeEmployable {
		t.Fatalf("expected EMPLOYABLE default, got %s", profile.ProfileType)
	}
}

func TestRegisterJobSeekerRejectsDuplicateEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := newAuthHandler(t, db)

	if w := postJSON(t, h.RegisterJobSeeker, "/api/auth/register/jobseeker", validJobSeekerPayload()); w.Code != http.StatusCreated {
		t.Fatalf("first register: %d", w.Code)
	}

	payload := validJobSeekerPayload()
	payload["phoneNumber"] = "+256712345679"
	w := postJSON(t, h.RegisterJobSeeker, "/api/auth/register/jobseeker", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "User with this email already exists") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRegisterJobSeekerRejectsDuplicatePhone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := newAuthHandler(t, db)

	if w := postJSON(t, h.RegisterJobSeeker, "/api/auth/register/jobseeker", validJobSeekerPayload()); w.Code != http.StatusCreated {
		t.Fatalf("first register: %d", w.Code)
	}

	payload := validJobSeekerPayload()
	payload["email"] = "other@mail.test"
	w := postJSON(t, h.RegisterJobSeeker, "/api/auth/register/jobseeker", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "User with this phone number already exists") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRegisterJobSeekerValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := newAuthHandler(t, db)

	cases := []struct {
		name    string
		mutate  func(map[string]any)
		message string
	}{
		{
			name:    "password mismatch",
			mutate:  func(p map[string]any) { p["confirmPassword"] = "different1" },
			message: "Passwords do not match",
		},
		{
			name:    "terms not accepted",
			mutate:  func(p map[string]any) { p["agreeToTerms"] = false },
			message: "You must agree to the terms and conditions",
		},
		{
			name:    "invalid phone",
			mutate:  func(p map[string]any) { p["phoneNumber"] = "+1555123456" },
			message: "valid Ugandan phone number",
		},
		{
			name: "weak password",
			mutate: func(p map[string]any) {
				p["password"] = "lettersonly"
				p["confirmPassword"] = "lettersonly"
			},
			message: "letters and numbers",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := validJobSeekerPayload()
			tc.mutate(payload)

			w := postJSON(t, h.RegisterJobSeeker, "/api/auth/register/jobseeker", payload)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.message) {
				t.Fatalf("expected %q in body, got %s", tc.message, w.Body.String())
			}
		})
	}
}

func TestLoginRejectsInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := newAuthHandler(t, db)

	hashed, err := auth.HashPassword("secret1234")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := database.User{
		Email:        "jane@mail.test",
		Phone:        "+256712345678",
		PasswordHash: hashed,
		Role:         database.RoleJobSeeker,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	w := postJSON(t, h.Login, "/api/auth/login", map[string]any{
		"email":    "jane@mail.test",
		"password": "wrongpass1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Invalid email or password") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = postJSON(t, h.Login, "/api/auth/login", map[string]any{
		"email":    "ghost@mail.test",
		"password": "whatever1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", w.Code)
	}
}
