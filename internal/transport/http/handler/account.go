package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/azamatbayne/user-service/internal/catalog"
	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/azamatbayne/user-service/internal/transport/http/middleware"
	"github.com/azamatbayne/user-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

// accountUsecaser is the subset of AccountUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type accountUsecaser interface {
	Register(ctx context.Context, email, password string) (*usecase.Payload, error)
	Login(ctx context.Context, email, password string) (*usecase.Payload, error)
	Invite(ctx context.Context, principal *domain.Principal, email string) (*usecase.Payload, error)
	Friends(ctx context.Context, principal *domain.Principal) ([]domain.PublicUser, error)
	Forget(ctx context.Context, email string) (*usecase.Payload, error)
	Reset(ctx context.Context, token, password string) (*usecase.Payload, error)
	Update(ctx context.Context, principal *domain.Principal, targetID string, patch usecase.UpdatePatch) (*usecase.Payload, error)
}

type AccountHandler struct {
	accounts accountUsecaser
	catalog  catalog.Catalog
	logger   *slog.Logger
}

func NewAccountHandler(accounts accountUsecaser, language string, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		catalog:  catalog.For(language),
		logger:   logger.With("component", "account_handler"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Password string `json:"password"`
}

type updateRequest struct {
	Email        string            `json:"email"`
	Password     string            `json:"password"`
	Name         string            `json:"name"`
	Username     string            `json:"username"`
	CustomFields map[string]string `json:"custom_fields"`
}

// POST /register
func (h *AccountHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.render(p))
}

// POST /login
func (h *AccountHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(p))
}

// POST /invite
func (h *AccountHandler) Invite(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.accounts.Invite(c.Request.Context(), middleware.Principal(c), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.render(p))
}

// GET /friends
func (h *AccountHandler) Friends(c *gin.Context) {
	friends, err := h.accounts.Friends(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// POST /forget
func (h *AccountHandler) Forget(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.accounts.Forget(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(p))
}

// POST /reset/:token
func (h *AccountHandler) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.accounts.Reset(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(p))
}

// POST /profile and POST /profile/:id
func (h *AccountHandler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := usecase.UpdatePatch{
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		Username:     req.Username,
		CustomFields: req.CustomFields,
	}
	p, err := h.accounts.Update(c.Request.Context(), middleware.Principal(c), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(p))
}

// render localizes the payload message and attaches the token when present.
// Login and update succeed without a message; they carry only the token.
func (h *AccountHandler) render(p *usecase.Payload) gin.H {
	out := gin.H{}
	if p.Message != "" {
		out["message"] = h.catalog.Message(p.Message)
	}
	if p.Token != "" {
		out["token"] = p.Token
	}
	return out
}
