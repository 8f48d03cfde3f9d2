package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"aibos-vmp/core/internal/api/middleware"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/principal"
	"aibos-vmp/core/internal/tenant"
	"aibos-vmp/core/internal/testutil"
)

func newTestServer(t *testing.T) (*Server, *tenant.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := testutil.OpenEntPostgres(t, "handlers_identity")
	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte("handler-test-signing-key-0123456789"),
		Issuer:     "aibos-vmp",
		ExpiresIn:  time.Hour,
	}

	tenantSvc := tenant.NewService(client, 10, 72)
	resolver := principal.NewResolver(client, jwtCfg)

	s := NewServer(ServerDeps{
		EntClient:         client,
		JWTCfg:            jwtCfg,
		Tenant:            tenantSvc,
		PrincipalResolver: resolver,
	})
	return s, tenantSvc
}

func newRouterForTest(s *Server) *gin.Engine {
	r := gin.New()
	RegisterRoutes(r, s)
	return r
}

func TestLogin_IssuesTokenAndPersistsSession(t *testing.T) {
	t.Parallel()
	s, tenantSvc := newTestServer(t)
	router := newRouterForTest(s)

	ctx := t.Context()
	tn, err := tenantSvc.CreateTenant(ctx, tenant.CreateTenantInput{Name: "Acme Login Co"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	u, err := tenantSvc.CreateUser(ctx, tenant.CreateUserInput{
		TenantID: tn.ID, Email: "login-test@acme.example", Password: "correct horse battery staple", Role: "owner",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	body, _ := json.Marshal(loginRequest{Email: "login-test@acme.example", Password: "correct horse battery staple"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != u.ID {
		t.Fatalf("expected userId %s, got %s", u.ID, resp.UserID)
	}
	if resp.Token == "" {
		t.Fatalf("expected a non-empty token")
	}

	count, err := s.deps.EntClient.Session.Query().Count(ctx)
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one session row after login, got %d", count)
	}
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	t.Parallel()
	s, tenantSvc := newTestServer(t)
	router := newRouterForTest(s)

	ctx := t.Context()
	tn, err := tenantSvc.CreateTenant(ctx, tenant.CreateTenantInput{Name: "Acme Wrongpass Co"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if _, err := tenantSvc.CreateUser(ctx, tenant.CreateUserInput{
		TenantID: tn.ID, Email: "wrongpass@acme.example", Password: "correct password", Role: "owner",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	body, _ := json.Marshal(loginRequest{Email: "wrongpass@acme.example", Password: "wrong password"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Fatalf("expected login with wrong password to fail, got 200: %s", rec.Body.String())
	}
}

func TestSwitchContext_PersistsAcrossRequests(t *testing.T) {
	t.Parallel()
	s, tenantSvc := newTestServer(t)
	router := newRouterForTest(s)

	ctx := t.Context()
	tn, err := tenantSvc.CreateTenant(ctx, tenant.CreateTenantInput{Name: "Acme Switch Co"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if _, err := tenantSvc.CreateUser(ctx, tenant.CreateUserInput{
		TenantID: tn.ID, Email: "switch-test@acme.example", Password: "switching contexts", Role: "owner",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	loginBody, _ := json.Marshal(loginRequest{Email: "switch-test@acme.example", Password: "switching contexts"})
	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRec := httptest.NewRecorder()
	router.ServeHTTP(loginRec, loginReq)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", loginRec.Code, loginRec.Body.String())
	}
	var login loginResponse
	if err := json.Unmarshal(loginRec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	switchReq := httptest.NewRequest(http.MethodPost, "/api/v1/me/contexts/"+tn.VendorID+"/switch", nil)
	switchReq.Header.Set("Authorization", "Bearer "+login.Token)
	switchRec := httptest.NewRecorder()
	router.ServeHTTP(switchRec, switchReq)
	if switchRec.Code != http.StatusOK {
		t.Fatalf("expected switch to vendor context to succeed, got %d: %s", switchRec.Code, switchRec.Body.String())
	}

	contextsReq := httptest.NewRequest(http.MethodGet, "/api/v1/me/contexts", nil)
	contextsReq.Header.Set("Authorization", "Bearer "+login.Token)
	contextsRec := httptest.NewRecorder()
	router.ServeHTTP(contextsRec, contextsReq)
	if contextsRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from GetMyContexts, got %d: %s", contextsRec.Code, contextsRec.Body.String())
	}

	var contexts struct {
		ActiveContext   string `json:"activeContext"`
		ActiveContextID string `json:"activeContextId"`
	}
	if err := json.Unmarshal(contextsRec.Body.Bytes(), &contexts); err != nil {
		t.Fatalf("decode contexts response: %v", err)
	}
	if contexts.ActiveContext != "vendor" {
		t.Fatalf("expected active context to persist as vendor, got %q", contexts.ActiveContext)
	}
	if contexts.ActiveContextID != tn.VendorID {
		t.Fatalf("expected active context id %s, got %s", tn.VendorID, contexts.ActiveContextID)
	}
}

func TestSwitchContext_RejectsForeignTenantID(t *testing.T) {
	t.Parallel()
	s, tenantSvc := newTestServer(t)
	router := newRouterForTest(s)

	ctx := t.Context()
	tn, err := tenantSvc.CreateTenant(ctx, tenant.CreateTenantInput{Name: "Acme Foreign Co"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if _, err := tenantSvc.CreateUser(ctx, tenant.CreateUserInput{
		TenantID: tn.ID, Email: "foreign-test@acme.example", Password: "a password here", Role: "owner",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	loginBody, _ := json.Marshal(loginRequest{Email: "foreign-test@acme.example", Password: "a password here"})
	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRec := httptest.NewRecorder()
	router.ServeHTTP(loginRec, loginReq)
	var login loginResponse
	if err := json.Unmarshal(loginRec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	switchReq := httptest.NewRequest(http.MethodPost, "/api/v1/me/contexts/"+idgen.NewID("TV", "not-mine")+"/switch", nil)
	switchReq.Header.Set("Authorization", "Bearer "+login.Token)
	switchRec := httptest.NewRecorder()
	router.ServeHTTP(switchRec, switchReq)
	if switchRec.Code == http.StatusOK {
		t.Fatalf("expected switching to a non-owned id to fail, got 200")
	}
}
