package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/azamatbayne/user-service/internal/transport/http/handler"
	"github.com/azamatbayne/user-service/internal/transport/http/middleware"
	"github.com/azamatbayne/user-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAccountUsecase implements the unexported accountUsecaser interface via
// method matching.
type fakeAccountUsecase struct {
	register func(ctx context.Context, email, password string) (*usecase.Payload, error)
	login    func(ctx context.Context, email, password string) (*usecase.Payload, error)
	invite   func(ctx context.Context, principal *domain.Principal, email string) (*usecase.Payload, error)
	friends  func(ctx context.Context, principal *domain.Principal) ([]domain.PublicUser, error)
	forget   func(ctx context.Context, email string) (*usecase.Payload, error)
	reset    func(ctx context.Context, token, password string) (*usecase.Payload, error)
	update   func(ctx context.Context, principal *domain.Principal, targetID string, patch usecase.UpdatePatch) (*usecase.Payload, error)
}

func (f *fakeAccountUsecase) Register(ctx context.Context, email, password string) (*usecase.Payload, error) {
	return f.register(ctx, email, password)
}

func (f *fakeAccountUsecase) Login(ctx context.Context, email, password string) (*usecase.Payload, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAccountUsecase) Invite(ctx context.Context, principal *domain.Principal, email string) (*usecase.Payload, error) {
	return f.invite(ctx, principal, email)
}

func (f *fakeAccountUsecase) Friends(ctx context.Context, principal *domain.Principal) ([]domain.PublicUser, error) {
	return f.friends(ctx, principal)
}

func (f *fakeAccountUsecase) Forget(ctx context.Context, email string) (*usecase.Payload, error) {
	return f.forget(ctx, email)
}

func (f *fakeAccountUsecase) Reset(ctx context.Context, token, password string) (*usecase.Payload, error) {
	return f.reset(ctx, token, password)
}

func (f *fakeAccountUsecase) Update(ctx context.Context, principal *domain.Principal, targetID string, patch usecase.UpdatePatch) (*usecase.Payload, error) {
	return f.update(ctx, principal, targetID, patch)
}

// fakeDecoder stands in for the JWT signer behind the auth middleware.
type fakeDecoder struct {
	principal *domain.Principal
}

func (f *fakeDecoder) Decode(raw string) (*domain.Principal, error) {
	if f.principal == nil {
		return nil, errors.New("invalid token")
	}
	return f.principal, nil
}

func newTestEngine(uc *fakeAccountUsecase, language string, decoder *fakeDecoder) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := handler.NewAccountHandler(uc, language, logger)

	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/forget", h.Forget)
	r.POST("/reset/:token", h.Reset)

	authed := r.Group("", middleware.Auth(decoder))
	authed.POST("/invite", h.Invite)
	authed.GET("/friends", h.Friends)
	authed.POST("/profile", h.Update)
	authed.POST("/profile/:id", h.Update)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

// ---- Register ----

func TestRegister_Success_Returns201WithToken(t *testing.T) {
	uc := &fakeAccountUsecase{
		register: func(_ context.Context, email, password string) (*usecase.Payload, error) {
			if email != "a@b.com" || password != "secret" {
				t.Errorf("got %s/%s", email, password)
			}
			return &usecase.Payload{Message: "register_success", Token: "jwt-123"}, nil
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/register", `{"email":"a@b.com","password":"secret"}`, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	body := decodeBody(t, w)
	if body["token"] != "jwt-123" {
		t.Errorf("token = %v, want jwt-123", body["token"])
	}
	if body["message"] == "register_success" {
		t.Error("message should be rendered through the catalog, not returned raw")
	}
}

func TestRegister_InvalidJSON_Returns400(t *testing.T) {
	uc := &fakeAccountUsecase{}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/register", `{bad json}`, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRegister_FeatureDisabled_Returns403(t *testing.T) {
	uc := &fakeAccountUsecase{
		register: func(_ context.Context, _, _ string) (*usecase.Payload, error) {
			return nil, domain.ErrRegistrationsDisabled
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/register", `{"email":"a@b.com","password":"x"}`, "")

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRegister_Conflict_Returns409(t *testing.T) {
	uc := &fakeAccountUsecase{
		register: func(_ context.Context, _, _ string) (*usecase.Payload, error) {
			return nil, domain.ErrEmailUsed
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/register", `{"email":"a@b.com","password":"x"}`, "")

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestRegister_FrenchCatalog(t *testing.T) {
	uc := &fakeAccountUsecase{
		register: func(_ context.Context, _, _ string) (*usecase.Payload, error) {
			return nil, domain.ErrEmailUsed
		},
	}
	en := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/register", `{"email":"a@b.com","password":"x"}`, "")
	fr := doJSON(t, newTestEngine(uc, "fr", &fakeDecoder{}),
		http.MethodPost, "/register", `{"email":"a@b.com","password":"x"}`, "")

	if decodeBody(t, en)["error"] == decodeBody(t, fr)["error"] {
		t.Error("French deployment should render a different message than English")
	}
}

func TestRegister_UnexpectedError_Returns500(t *testing.T) {
	uc := &fakeAccountUsecase{
		register: func(_ context.Context, _, _ string) (*usecase.Payload, error) {
			return nil, errors.New("db down")
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/register", `{"email":"a@b.com","password":"x"}`, "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Internal server error" {
		t.Errorf("error = %v, internals must not leak", body["error"])
	}
}

// ---- Login ----

func TestLogin_WrongPassword_Returns401(t *testing.T) {
	uc := &fakeAccountUsecase{
		login: func(_ context.Context, _, _ string) (*usecase.Payload, error) {
			return nil, domain.ErrPasswordInvalid
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/login", `{"email":"a@b.com","password":"x"}`, "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLogin_DisabledAccount_Returns403(t *testing.T) {
	uc := &fakeAccountUsecase{
		login: func(_ context.Context, _, _ string) (*usecase.Payload, error) {
			return nil, domain.ErrAccountDisabled
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/login", `{"email":"a@b.com","password":"x"}`, "")

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

// ---- Reset ----

func TestReset_TokenFromPath(t *testing.T) {
	var gotToken string
	uc := &fakeAccountUsecase{
		reset: func(_ context.Context, token, _ string) (*usecase.Payload, error) {
			gotToken = token
			return &usecase.Payload{Message: "reset_success", Token: "jwt"}, nil
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/reset/tok-abc", `{"password":"newpw"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotToken != "tok-abc" {
		t.Errorf("token = %q, want tok-abc", gotToken)
	}
}

func TestReset_Expired_Returns410(t *testing.T) {
	uc := &fakeAccountUsecase{
		reset: func(_ context.Context, _, _ string) (*usecase.Payload, error) {
			return nil, domain.ErrTokenExpired
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/reset/tok-abc", `{"password":"newpw"}`, "")

	if w.Code != http.StatusGone {
		t.Errorf("status = %d, want 410", w.Code)
	}
}

// ---- Invite / Friends ----

func TestInvite_Anonymous_Returns401(t *testing.T) {
	uc := &fakeAccountUsecase{}
	w := doJSON(t, newTestEngine(uc, "en", &fakeDecoder{}),
		http.MethodPost, "/invite", `{"email":"guest@b.com"}`, "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestInvite_WithoutGrant_Returns403(t *testing.T) {
	decoder := &fakeDecoder{principal: &domain.Principal{ID: "u1", Roles: []string{domain.RoleInvited}}}
	uc := &fakeAccountUsecase{
		invite: func(_ context.Context, principal *domain.Principal, _ string) (*usecase.Payload, error) {
			if principal == nil || principal.ID != "u1" {
				t.Errorf("principal not forwarded: %v", principal)
			}
			return nil, domain.ErrInvitationsForbidden
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", decoder),
		http.MethodPost, "/invite", `{"email":"guest@b.com"}`, "some-token")

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestFriends_ReturnsList(t *testing.T) {
	decoder := &fakeDecoder{principal: &domain.Principal{ID: "u1"}}
	uc := &fakeAccountUsecase{
		friends: func(_ context.Context, _ *domain.Principal) ([]domain.PublicUser, error) {
			return []domain.PublicUser{{ID: "u2", Email: "guest@b.com"}}, nil
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", decoder), http.MethodGet, "/friends", "", "some-token")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Friends []domain.PublicUser `json:"friends"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Friends) != 1 || body.Friends[0].Email != "guest@b.com" {
		t.Errorf("friends = %v", body.Friends)
	}
}

// ---- Update ----

func TestUpdate_TargetIDFromPath(t *testing.T) {
	decoder := &fakeDecoder{principal: &domain.Principal{ID: "admin", Roles: []string{domain.RoleAdmin}}}
	var gotTarget string
	uc := &fakeAccountUsecase{
		update: func(_ context.Context, _ *domain.Principal, targetID string, patch usecase.UpdatePatch) (*usecase.Payload, error) {
			gotTarget = targetID
			if patch.Name != "Ada" {
				t.Errorf("patch.Name = %q, want Ada", patch.Name)
			}
			return &usecase.Payload{Message: "register_success", Token: "jwt"}, nil
		},
	}
	r := newTestEngine(uc, "en", decoder)

	if w := doJSON(t, r, http.MethodPost, "/profile/u2", `{"name":"Ada"}`, "tok"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotTarget != "u2" {
		t.Errorf("targetID = %q, want u2", gotTarget)
	}

	if w := doJSON(t, r, http.MethodPost, "/profile", `{"name":"Ada"}`, "tok"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotTarget != "" {
		t.Errorf("self-update targetID = %q, want empty", gotTarget)
	}
}

func TestUpdate_OtherWithoutAdmin_Returns403(t *testing.T) {
	decoder := &fakeDecoder{principal: &domain.Principal{ID: "u1"}}
	uc := &fakeAccountUsecase{
		update: func(_ context.Context, _ *domain.Principal, _ string, _ usecase.UpdatePatch) (*usecase.Payload, error) {
			return nil, domain.ErrNotAuthorized
		},
	}
	w := doJSON(t, newTestEngine(uc, "en", decoder),
		http.MethodPost, "/profile/u2", `{"name":"Eve"}`, "tok")

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
