package redirect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/links"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
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
	return db
}

func createTestLink(t *testing.T, db *gorm.DB, shortKey, url string) models.Link {
	link, err := links.NewGormStore(db).Create(context.Background(), links.NewLink{
		URL:      url,
		ShortKey: shortKey,
		Owner:    auth.AnonymousOwner(),
	})
	if err != nil {
		t.Fatalf("Failed to create test link: %v", err)
	}
	return link
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := links.NewService(links.NewGormStore(db), links.ServiceConfig{})
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func visit(router *gin.Engine, key string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/"+key, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRedirect(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestLink(t, db, "SaMpLe1", "https://example.com/target")

	resp := visit(router, "SaMpLe1")

	if resp.Code != http.StatusFound {
		t.Errorf("Expected status 302, got %d", resp.Code)
	}

	location := resp.Header().Get("Location")
	if location != "https://example.com/target" {
		t.Errorf("Expected Location 'https://example.com/target', got %s", location)
	}
}

func TestRedirectCountsVisits(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	link := createTestLink(t, db, "SaMpLe1", "https://example.com/target")

	const k = 3
	for i := 0; i < k; i++ {
		visit(router, "SaMpLe1")
	}

	var updated models.Link
	db.First(&updated, link.ID)
	if updated.Visits != k {
		t.Errorf("Expected visits %d, got %d", k, updated.Visits)
	}
	if updated.Count != link.Count {
		t.Errorf("Visits must not change count: %d -> %d", link.Count, updated.Count)
	}
	if updated.URL != link.URL || updated.ShortKey != link.ShortKey {
		t.Error("Visits must not change url or short key")
	}
}

func TestRedirectUnknownKey(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestLink(t, db, "SaMpLe1", "https://example.com/target")

	// keys are case sensitive
	resp := visit(router, "sample1")

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected an HTML page, got %s", ct)
	}
	body := resp.Body.String()
	for _, want := range []string{"No one has ever been here before!", "We wonder how you got here?", `<a href="/">`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

type failingVisitor struct{}

func (failingVisitor) Visit(context.Context, string) (models.Link, error) {
	return models.Link{}, errx.E("test", errx.Internal, errors.New("database is locked"))
}

func TestRedirectStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(failingVisitor{}).RegisterRoutes(r)

	resp := visit(r, "SaMpLe1")
	if resp.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.Code)
	}
}
