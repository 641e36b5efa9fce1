package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/homesite/internal/common"
	"github.com/dmitrijs2005/homesite/internal/logging"
	"github.com/dmitrijs2005/homesite/internal/server/auth"
	"github.com/dmitrijs2005/homesite/internal/server/models"
	"github.com/dmitrijs2005/homesite/internal/server/services"
	"github.com/dmitrijs2005/homesite/internal/server/validation"
)

// UserService is the auth component the handlers delegate to.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.Token, error)
	VerifyToken(token string) (string, error)
	Profile(ctx context.Context, userID string) (*models.User, error)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type handler struct {
	users  UserService
	logger logging.Logger
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.users.Register(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	respondText(w, http.StatusCreated, MsgRegistered)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{Token: token.AccessToken})
}

func (h *handler) admin(w http.ResponseWriter, r *http.Request) {
	respondText(w, http.StatusOK, MsgAdminWelcome)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondText(w, http.StatusForbidden, MsgAccessDenied)
		return
	}

	user, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profileResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a single JSON object into dst. On failure it writes a
// 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		respondText(w, http.StatusBadRequest, MsgInvalidBody)
		return false
	}
	if dec.More() {
		respondText(w, http.StatusBadRequest, MsgInvalidBody)
		return false
	}
	return true
}

// writeError translates a service or auth error into a response.
func writeError(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		respondJSON(w, http.StatusBadRequest, validationResponse{Error: MsgValidationFailed, Fields: verrs})
	case errors.Is(err, common.ErrorAlreadyExists):
		respondText(w, http.StatusBadRequest, MsgEmailTaken)
	case errors.Is(err, common.ErrorUnauthorized):
		respondText(w, http.StatusUnauthorized, MsgInvalidCreds)
	case errors.Is(err, common.ErrorAccessDenied):
		respondText(w, http.StatusForbidden, MsgAccessDenied)
	case errors.Is(err, common.ErrInvalidToken):
		respondText(w, http.StatusForbidden, MsgInvalidToken)
	case errors.Is(err, common.ErrorNotFound):
		respondText(w, http.StatusNotFound, MsgNotFound)
	default:
		respondText(w, http.StatusInternalServerError, MsgInternal)
	}
}
