package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	_ "github.com/nebari-dev/rolestore/docs"
	"github.com/nebari-dev/rolestore/internal/api/handlers"
	"github.com/nebari-dev/rolestore/internal/api/middleware"
	"github.com/nebari-dev/rolestore/internal/config"
	"github.com/nebari-dev/rolestore/internal/db"
	"github.com/nebari-dev/rolestore/internal/models"
	"github.com/nebari-dev/rolestore/internal/rbac"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	enforcer, err := rbac.NewEnforcer(database, slog.Default())
	if err != nil {
		t.Fatalf("init rbac: %v", err)
	}

	cfg := &config.Config{Server: config.ServerConfig{Mode: "development"}}
	return NewRouter(cfg, database, enforcer), database
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "tester")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSwaggerDoc(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/docs/doc.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	doc := decode[map[string]interface{}](t, w)
	paths, ok := doc["paths"].(map[string]interface{})
	if !ok {
		t.Fatalf("doc has no paths: %v", doc)
	}
	if _, ok := paths["/roles"]; !ok {
		t.Error("doc should describe /roles")
	}
}

func TestRoleLifecycle(t *testing.T) {
	r, database := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/roles", map[string]string{
		"name":        "Support",
		"description": "Answers tickets",
		"created_by":  "alice",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	first := decode[models.Role](t, w)

	w = doJSON(t, r, http.MethodPost, "/api/v1/roles", map[string]string{"name": "Support"})
	if w.Code != http.StatusCreated {
		t.Fatalf("second create: expected 201, got %d", w.Code)
	}
	second := decode[models.Role](t, w)
	if second.Name != "Support 2" {
		t.Errorf("expected deduplicated name 'Support 2', got %q", second.Name)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/roles?order=created", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	listed := decode[[]models.Role](t, w)
	if len(listed) != 2 || listed[0].ID != first.ID || listed[1].ID != second.ID {
		t.Errorf("unexpected ordered list: %+v", listed)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/roles/by-name/Support", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("by-name: expected 200, got %d", w.Code)
	}
	if got := decode[models.Role](t, w); got.ID != first.ID {
		t.Errorf("by-name returned id %d, want %d", got.ID, first.ID)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/v1/roles/"+itoa(first.ID), map[string]string{"custom_instructions": "Be kind"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decode[models.Role](t, w)
	if updated.CustomInstructions == nil || *updated.CustomInstructions != "Be kind" {
		t.Errorf("custom instructions not applied: %+v", updated)
	}
	if updated.Description == nil || *updated.Description != "Answers tickets" {
		t.Errorf("description should be untouched: %+v", updated)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/roles/"+itoa(first.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/v1/roles/"+itoa(first.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", w.Code)
	}

	var entries []models.AuditLog
	database.Order("id ASC").Find(&entries)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
		if e.Actor != "tester" {
			t.Errorf("expected actor tester, got %q", e.Actor)
		}
	}
	want := []string{"create_role", "create_role", "update_role", "delete_role"}
	if len(actions) != len(want) {
		t.Fatalf("expected audit actions %v, got %v", want, actions)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("expected audit actions %v, got %v", want, actions)
		}
	}
}

func TestRoleEndpoints_NotFoundAndBadInput(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"get missing", http.MethodGet, "/api/v1/roles/77", nil, http.StatusNotFound},
		{"get bad id", http.MethodGet, "/api/v1/roles/abc", nil, http.StatusBadRequest},
		{"by-name missing", http.MethodGet, "/api/v1/roles/by-name/Nobody", nil, http.StatusNotFound},
		{"update missing", http.MethodPatch, "/api/v1/roles/77", map[string]string{"name": "x"}, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/v1/roles/77", nil, http.StatusNoContent},
		{"create without name", http.MethodPost, "/api/v1/roles", map[string]string{"description": "d"}, http.StatusBadRequest},
		{"suggest without name", http.MethodGet, "/api/v1/roles/suggest-name", nil, http.StatusBadRequest},
		{"bad order", http.MethodGet, "/api/v1/roles?order=name", nil, http.StatusBadRequest},
		{"order with search", http.MethodGet, "/api/v1/roles?order=created&search=a", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestSearchAndSuggest(t *testing.T) {
	r, _ := setupRouter(t)
	for _, n := range []string{"Abcdef", "xxabcxx", "ABC", "zzz"} {
		if w := doJSON(t, r, http.MethodPost, "/api/v1/roles", map[string]string{"name": n}); w.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", n, w.Code)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/roles?search=abc", nil)
	if got := decode[[]models.Role](t, w); len(got) != 3 {
		t.Errorf("expected 3 matches, got %d", len(got))
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/roles/suggest-name?name=ABC", nil)
	if got := decode[handlers.NameSuggestionResponse](t, w); got.Name != "ABC 2" {
		t.Errorf("expected suggestion 'ABC 2', got %q", got.Name)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/roles/suggest-name?name=Fresh", nil)
	if got := decode[handlers.NameSuggestionResponse](t, w); got.Name != "Fresh" {
		t.Errorf("expected suggestion 'Fresh', got %q", got.Name)
	}
}

func TestAttachRole_ReplacesAndMirrorsToRBAC(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "dave",
		"email":    "dave@example.com",
		"password": "correct-horse",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	user := decode[models.User](t, w)

	r1 := decode[models.Role](t, doJSON(t, r, http.MethodPost, "/api/v1/roles", map[string]string{"name": "R1"}))
	r2 := decode[models.Role](t, doJSON(t, r, http.MethodPost, "/api/v1/roles", map[string]string{"name": "R2"}))

	userPath := "/api/v1/users/" + user.ID.String()
	for _, role := range []models.Role{r1, r2} {
		w = doJSON(t, r, http.MethodPut, userPath+"/role", map[string]uint{"role_id": role.ID})
		if w.Code != http.StatusOK {
			t.Fatalf("attach %s: expected 200, got %d: %s", role.Name, w.Code, w.Body.String())
		}
	}

	got := decode[models.User](t, doJSON(t, r, http.MethodGet, userPath, nil))
	if got.RoleID == nil || *got.RoleID != r2.ID {
		t.Fatalf("expected role %d, got %v", r2.ID, got.RoleID)
	}
	if got.Role == nil || got.Role.Name != "R2" {
		t.Errorf("expected embedded role R2, got %+v", got.Role)
	}

	roles := decode[handlers.UserRolesResponse](t, doJSON(t, r, http.MethodGet, userPath+"/roles", nil))
	if len(roles.RoleIDs) != 1 || roles.RoleIDs[0] != r2.ID {
		t.Errorf("expected RBAC roles [%d], got %v", r2.ID, roles.RoleIDs)
	}

	// Deleting the role clears the RBAC mirror.
	doJSON(t, r, http.MethodDelete, "/api/v1/roles/"+itoa(r2.ID), nil)
	roles = decode[handlers.UserRolesResponse](t, doJSON(t, r, http.MethodGet, userPath+"/roles", nil))
	if len(roles.RoleIDs) != 0 {
		t.Errorf("expected no RBAC roles after delete, got %v", roles.RoleIDs)
	}
}

func TestAttachRole_MissingRoleOrUser(t *testing.T) {
	r, _ := setupRouter(t)
	user := decode[models.User](t, doJSON(t, r, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "erin",
		"email":    "erin@example.com",
		"password": "correct-horse",
	}))

	w := doJSON(t, r, http.MethodPut, "/api/v1/users/"+user.ID.String()+"/role", map[string]uint{"role_id": 404})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing role: expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPut, "/api/v1/users/00000000-0000-0000-0000-000000000001/role", map[string]uint{"role_id": 1})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing user: expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad uuid: expected 400, got %d", w.Code)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "frank",
		"email":    "not-an-email",
		"password": "correct-horse",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid email, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "frank",
		"email":    "frank@example.com",
		"password": "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", w.Code)
	}
}

func TestUserRoles_RBACDisabled(t *testing.T) {
	_, database := setupRouter(t)
	cfg := &config.Config{Server: config.ServerConfig{Mode: "development"}}
	r := NewRouter(cfg, database, nil)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "carol",
		"email":    "carol@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	user := decode[models.User](t, w)

	w = doJSON(t, r, http.MethodGet, "/api/v1/users/"+user.ID.String()+"/roles", nil)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
}

func TestInfo(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/info", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if info := decode[handlers.InfoResponse](t, w); info.Version != handlers.Version {
		t.Errorf("version = %q, want %q", info.Version, handlers.Version)
	}
}
