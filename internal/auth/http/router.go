package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/AlibekovAA/recordkeeper/internal/auth/service"
	commonerrors "github.com/AlibekovAA/recordkeeper/internal/common/errors"
	commonhttp "github.com/AlibekovAA/recordkeeper/internal/common/http"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	auth *service.AuthService
	log  *logger.Logger
	errs *commonhttp.ErrorHandler
}

// NewHandler serves /auth/register and /auth/login. Store calls run under
// requestTimeout.
func NewHandler(auth *service.AuthService, log *logger.Logger, requestTimeout time.Duration) http.Handler {
	h := &Handler{auth: auth, log: log, errs: commonhttp.NewErrorHandler(log)}
	post := commonhttp.RequireMethod(http.MethodPost)
	timeout := commonhttp.WithTimeout(requestTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", post(timeout(h.register)))
	mux.HandleFunc("/auth/login", post(timeout(h.login)))
	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "register_invalid_json",
		}).Warnf("register failed: invalid json: %v", err)
		commonhttp.WriteJSON(w, http.StatusBadRequest, commonhttp.ErrorResponse{Error: "invalid json"})
		return
	}

	err := h.auth.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.writeRegisterError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, commonhttp.MessageResponse{Message: "User created successfully"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "login_invalid_json",
		}).Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	token, err := h.auth.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// writeRegisterError reports client-side registration failures as
// {"error": message}, where message is the underlying cause when there is
// one. Everything else goes through the shared error handler.
func (h *Handler) writeRegisterError(w http.ResponseWriter, r *http.Request, err error) {
	domainErr, ok := commonerrors.AsDomainError(err)
	if !ok || domainErr.HTTPStatus() != http.StatusBadRequest {
		h.errs.HandleError(w, r, err)
		return
	}

	message := domainErr.Message()
	if cause := errors.Unwrap(domainErr); cause != nil {
		message = cause.Error()
	}
	commonhttp.WriteJSON(w, http.StatusBadRequest, commonhttp.ErrorResponse{Error: message})
}
