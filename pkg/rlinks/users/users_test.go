package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if _, err := models.EnsurePublicUser(db); err != nil {
		t.Fatalf("Failed to create public user: %v", err)
	}
	return db
}

func setupTestRouter(db *gorm.DB) (*gin.Engine, *auth.TokenService) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	tokens := auth.NewTokenService("users-test-secret", time.Hour)
	NewHandler(db, tokens, bcrypt.MinCost).RegisterRoutes(&r.RouterGroup)
	return r, tokens
}

func doJSON(router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	req, _ := http.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func errorOf(resp *httptest.ResponseRecorder) string {
	var body map[string]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	return body["error"]
}

func register(t *testing.T, db *gorm.DB, router *gin.Engine, username, password string) models.User {
	t.Helper()
	resp := doJSON(router, "POST", "/users", RegisterRequest{Username: username, Password: password}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, resp.Code, resp.Body.String())
	}
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		t.Fatalf("Registered user not found: %v", err)
	}
	return user
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	resp := doJSON(router, "POST", "/users", RegisterRequest{Username: "alice", Password: "secret123"}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d", http.StatusCreated, resp.Code)
	}

	var response UserResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Username != "alice" {
		t.Errorf("Expected username alice, got %s", response.Username)
	}

	var user models.User
	db.Where("username = ?", "alice").First(&user)
	if user.PasswordHash == "" || user.PasswordHash == "secret123" {
		t.Error("Password must be stored hashed")
	}
	if !auth.CheckPassword("secret123", user.PasswordHash) {
		t.Error("Stored hash does not match the password")
	}
}

func TestRegisterRejects(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)
	register(t, db, router, "alice", "secret123")

	tests := []struct {
		name      string
		req       any
		wantError string
	}{
		{"duplicate", RegisterRequest{Username: "alice", Password: "other"}, MessageUsernameTaken},
		{"reserved", RegisterRequest{Username: "public", Password: "secret"}, MessageUsernameTaken},
		{"reserved any case", RegisterRequest{Username: "Public", Password: "secret"}, MessageUsernameTaken},
		{"blank username", RegisterRequest{Username: "  ", Password: "secret"}, MessageMissingFields},
		{"blank password", RegisterRequest{Username: "bob", Password: ""}, MessageMissingFields},
		{"missing password", map[string]string{"username": "bob"}, MessageMissingFields},
		{"empty object", map[string]string{}, MessageMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(router, "POST", "/users", tt.req, "")
			if resp.Code != http.StatusBadRequest {
				t.Errorf("Expected status %d, got %d", http.StatusBadRequest, resp.Code)
			}
			if got := errorOf(resp); got != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, got)
			}
		})
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 2 {
		t.Errorf("Expected public and alice only, got %d users", count)
	}
}

func TestUpdatePasswordByUsernameAndID(t *testing.T) {
	db := setupTestDB(t)
	router, tokens := setupTestRouter(db)
	alice := register(t, db, router, "alice", "secret123")
	token, _ := tokens.Generate(alice.ID, alice.Username)

	for i, key := range []string{"alice", fmt.Sprint(alice.ID)} {
		password := fmt.Sprintf("changed-%d", i)
		resp := doJSON(router, "PATCH", "/users/"+key, UpdatePasswordRequest{Password: password}, token)
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected status %d for key %s, got %d: %s", http.StatusOK, key, resp.Code, resp.Body.String())
		}

		var user models.User
		db.First(&user, alice.ID)
		if !auth.CheckPassword(password, user.PasswordHash) {
			t.Errorf("Password not updated via key %s", key)
		}
	}
}

func TestUpdatePasswordUnauthorized(t *testing.T) {
	db := setupTestDB(t)
	router, tokens := setupTestRouter(db)
	alice := register(t, db, router, "alice", "secret123")
	bob := register(t, db, router, "bob", "secret123")
	aliceToken, _ := tokens.Generate(alice.ID, alice.Username)
	bobToken, _ := tokens.Generate(bob.ID, bob.Username)

	tests := []struct {
		name  string
		key   string
		token string
	}{
		{"no token", "alice", ""},
		{"tampered token", "alice", aliceToken + "x"},
		{"other user by name", "alice", bobToken},
		{"other user by id", fmt.Sprint(alice.ID), bobToken},
		{"public user", "public", aliceToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(router, "PATCH", "/users/"+tt.key, UpdatePasswordRequest{Password: "hijacked"}, tt.token)
			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, resp.Code)
			}
			if got := errorOf(resp); got != "Unauthorized access." {
				t.Errorf("Expected Unauthorized access., got %q", got)
			}
		})
	}

	var user models.User
	db.First(&user, alice.ID)
	if auth.CheckPassword("hijacked", user.PasswordHash) {
		t.Error("Password must not have changed")
	}
}

func TestUpdatePasswordBlank(t *testing.T) {
	db := setupTestDB(t)
	router, tokens := setupTestRouter(db)
	alice := register(t, db, router, "alice", "secret123")
	token, _ := tokens.Generate(alice.ID, alice.Username)

	for _, body := range []any{UpdatePasswordRequest{}, map[string]string{}} {
		resp := doJSON(router, "PATCH", "/users/alice", body, token)
		if resp.Code != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, resp.Code)
		}
		if got := errorOf(resp); got != MessageMissingPassword {
			t.Errorf("Expected error %q, got %q", MessageMissingPassword, got)
		}
	}
}

func TestDeleteAccount(t *testing.T) {
	db := setupTestDB(t)
	router, tokens := setupTestRouter(db)
	alice := register(t, db, router, "alice", "secret123")
	bob := register(t, db, router, "bob", "secret123")
	token, _ := tokens.Generate(alice.ID, alice.Username)

	db.Create(&models.Link{URL: "https://example.com/a", ShortKey: "aaaaaaa", UserID: alice.ID})
	db.Create(&models.Link{URL: "https://example.com/b", ShortKey: "bbbbbbb", UserID: bob.ID})

	resp := doJSON(router, "DELETE", "/users/alice", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.User{}).Where("id = ?", alice.ID).Count(&count)
	if count != 0 {
		t.Error("Expected alice to be deleted")
	}
	db.Model(&models.Link{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected only bob's link to remain, got %d links", count)
	}

	// the token outlives the account but no longer grants anything
	resp = doJSON(router, "DELETE", "/users/alice", nil, token)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d after deletion, got %d", http.StatusUnauthorized, resp.Code)
	}
}

func TestDeleteOtherAccount(t *testing.T) {
	db := setupTestDB(t)
	router, tokens := setupTestRouter(db)
	register(t, db, router, "alice", "secret123")
	bob := register(t, db, router, "bob", "secret123")
	bobToken, _ := tokens.Generate(bob.ID, bob.Username)

	resp := doJSON(router, "DELETE", "/users/alice", nil, bobToken)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, resp.Code)
	}

	var count int64
	db.Model(&models.User{}).Where("username = ?", "alice").Count(&count)
	if count != 1 {
		t.Error("alice must still exist")
	}
}
