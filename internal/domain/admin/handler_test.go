package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/dashboard"
	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/domain/user"
	"github.com/mestore/mestore-api/internal/middleware"
	"github.com/mestore/mestore-api/internal/pkg/jwt"
	"github.com/mestore/mestore-api/internal/pkg/password"
)

type fakeDashRepo struct{}

func (fakeDashRepo) Collect(ctx context.Context) (*dashboard.Stats, error) {
	return &dashboard.Stats{}, nil
}

func newTestRouter(users ...*user.User) (http.Handler, *fakePermRepo, *jwt.Service) {
	userRepo := newFakeUserRepo(users...)
	permRepo := seededPermRepo()

	auditor := &captureAuditor{}
	perms := permission.NewService(permRepo, userRepo, permission.NewDecisionCache(nil, 0), auditor)
	svc := NewService(userRepo, perms, &fakeAuditRepo{}, auditor)
	jwtSvc := jwt.NewService("secret", time.Minute, time.Hour)
	h := NewHandler(svc, perms, jwtSvc)
	dash := dashboard.NewHandler(fakeDashRepo{}, perms)

	return h.Routes(middleware.Auth(jwtSvc), dash), permRepo, jwtSvc
}

func accessToken(t *testing.T, jwtSvc *jwt.Service, u *user.User) string {
	t.Helper()
	token, err := jwtSvc.GenerateAccessToken(u.ID, string(u.UserType), u.SecurityClearanceLevel)
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}
	return token
}

func doRequest(router http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestListGrantsRequiresReadAuthority(t *testing.T) {
	low := newSuperuser(1)
	low.UserType = user.TypeAdmin
	target := newSuperuser(5)
	router, permRepo, jwtSvc := newTestRouter(low, target)

	permRepo.grants = append(permRepo.grants, &permission.Grant{
		ID:           uuid.New(),
		UserID:       target.ID,
		PermissionID: permRepo.perms[0].ID,
		Scope:        permission.ScopeGlobal,
		GrantedBy:    uuid.New(),
		GrantedAt:    time.Now(),
		IsActive:     true,
	})

	token := accessToken(t, jwtSvc, low)

	rr := doRequest(router, http.MethodGet, "/"+target.ID.String()+"/permissions", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("grant-less admin reading another user's grants: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(router, http.MethodGet, "/"+low.ID.String()+"/permissions", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("self grant listing should succeed: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	super := accessToken(t, jwtSvc, target)
	rr = doRequest(router, http.MethodGet, "/"+low.ID.String()+"/permissions", super, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("superuser grant listing should succeed: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListCatalogRequiresAuthority(t *testing.T) {
	low := newSuperuser(1)
	low.UserType = user.TypeAdmin
	super := newSuperuser(5)
	router, _, jwtSvc := newTestRouter(low, super)

	rr := doRequest(router, http.MethodGet, "/permissions", accessToken(t, jwtSvc, low), nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("grant-less admin reading catalog: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(router, http.MethodGet, "/permissions", accessToken(t, jwtSvc, super), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("superuser reading catalog: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestLoginReturnsTokenPair(t *testing.T) {
	hash, _ := password.Hash("correct horse battery")
	admin := newSuperuser(5)
	admin.PasswordHash = hash
	router, _, _ := newTestRouter(admin)

	body, _ := json.Marshal(LoginRequest{Email: admin.Email, Password: "correct horse battery"})
	rr := doRequest(router, http.MethodPost, "/auth/login", "", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var out struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresIn    int64  `json:"expires_in"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.AccessToken == "" || out.Data.RefreshToken == "" {
		t.Fatal("expected both tokens in login response")
	}
	if out.Data.ExpiresIn != 60 {
		t.Errorf("expected expires_in 60, got %d", out.Data.ExpiresIn)
	}
}

func TestRefreshIssuesNewTokenPair(t *testing.T) {
	hash, _ := password.Hash("correct horse battery")
	admin := newSuperuser(5)
	admin.PasswordHash = hash
	router, _, _ := newTestRouter(admin)

	body, _ := json.Marshal(LoginRequest{Email: admin.Email, Password: "correct horse battery"})
	rr := doRequest(router, http.MethodPost, "/auth/login", "", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d body=%s", rr.Code, rr.Body.String())
	}
	var login struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &login); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	body, _ = json.Marshal(RefreshRequest{RefreshToken: login.Data.RefreshToken})
	rr = doRequest(router, http.MethodPost, "/auth/refresh", "", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d body=%s", rr.Code, rr.Body.String())
	}
	var refreshed struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &refreshed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if refreshed.Data.AccessToken == "" || refreshed.Data.RefreshToken == "" {
		t.Fatal("expected a fresh token pair")
	}

	// An access token is not a refresh token
	body, _ = json.Marshal(RefreshRequest{RefreshToken: login.Data.AccessToken})
	rr = doRequest(router, http.MethodPost, "/auth/refresh", "", body)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("access token on refresh endpoint: expected 401, got %d", rr.Code)
	}
}

func TestRefreshRejectsIneligibleAccount(t *testing.T) {
	locked := newSuperuser(5)
	locked.IsLocked = true
	router, _, jwtSvc := newTestRouter(locked)

	token, _, _, err := jwtSvc.GenerateRefreshToken(locked.ID)
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: token})
	rr := doRequest(router, http.MethodPost, "/auth/refresh", "", body)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("locked account refresh: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}

	unknown, _, _, err := jwtSvc.GenerateRefreshToken(uuid.New())
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}
	body, _ = json.Marshal(RefreshRequest{RefreshToken: unknown})
	rr = doRequest(router, http.MethodPost, "/auth/refresh", "", body)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unknown account refresh: expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}
