package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/harshssd/HyperFit-sub001/internal/telemetry/tracing"
	"github.com/harshssd/HyperFit-sub001/pkg"
)

// TokenHeader carries the session token on every authenticated request.
const TokenHeader = "X-HYPERFIT-TOKEN"

type usersRepo interface {
	Create(ctx context.Context, user User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
}

type Handler struct {
	authService *Service
	usersRepo   usersRepo
}

func NewHandler(authService *Service, usersRepo usersRepo) *Handler {
	return &Handler{
		authService: authService,
		usersRepo:   usersRepo,
	}
}

func (handler *Handler) SetupRoutes(authSubrouter *mux.Router) {
	authSubrouter.
		HandleFunc("/signup", handler.handleSignUp).
		Methods("POST", "OPTIONS").Name("signup")
	authSubrouter.
		HandleFunc("/login", handler.handleLogin).
		Methods("POST", "OPTIONS").Name("login")
	authSubrouter.
		HandleFunc("/logout", handler.handleLogout).
		Methods("POST", "OPTIONS").Name("logout")
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (handler *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.signup")
	defer span.End()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("signup, unmarshal json params: %s", err)
		http.Error(w, "signup failed", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		req.Username = usernameFromEmail(req.Email)
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		log.Errorf("signup, hash password: %s", err)
		http.Error(w, "signup failed", http.StatusInternalServerError)
		return
	}

	user, err := handler.usersRepo.Create(ctx, User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: passwordHash,
	})
	if err != nil {
		log.Errorf("signup, create user [%s]: %s", req.Email, err)
		// auth errors are surfaced verbatim as inline messages
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := handler.authService.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("signup, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	handler.writeSession(w, token, user.DisplayName(), http.StatusCreated)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.login")
	defer span.End()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("login, unmarshal json params: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	user, err := handler.usersRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		log.Tracef("[email] failed login attempt for: %s", req.Email)
		http.Error(w, "error, wrong credentials", http.StatusBadRequest)
		return
	}

	if !pkg.CheckPasswordHash(req.Password, user.PasswordHash) {
		log.Tracef("[password] failed login attempt for: %s", req.Email)
		http.Error(w, "error, wrong credentials", http.StatusBadRequest)
		return
	}

	token, err := handler.authService.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("login failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	log.Trace("new login success")
	handler.writeSession(w, token, user.DisplayName(), http.StatusOK)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.logout")
	defer span.End()

	authToken := r.Header.Get(TokenHeader)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(r.Context(), authToken)
	if err != nil {
		log.Tracef("[failed logout] => %s: %s", r.URL.Path, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}

func (handler *Handler) writeSession(w http.ResponseWriter, token, username string, statusCode int) {
	sessionJson, err := json.Marshal(sessionResponse{
		Token:    token,
		Username: username,
	})
	if err != nil {
		log.Errorf("failed to marshal session response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, statusCode)
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return fmt.Sprintf("user-%d", time.Now().Unix())
}
