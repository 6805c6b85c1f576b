package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fireplay/internal/catalog"
	"fireplay/internal/middleware"
	"fireplay/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// decodeRequest decodes and validates a JSON body, writing the 400 response
// itself when the body is unusable
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeBody decodes a JSON body without struct validation
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func gameIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "gameID"))
	if err != nil || id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid game id")
		return 0, false
	}
	return id, true
}

// currentUser returns the authenticated user id; protected routes always
// have one, so a miss is answered with 401
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok || userID == "" {
		middleware.RespondUnauthenticated(w, "Sign in to continue", middleware.LoginPath)
		return "", false
	}
	return userID, true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// respondAuthError maps account errors to their status and stable code
func respondAuthError(w http.ResponseWriter, err error, logger *zap.Logger, fallback string) {
	var authErr *service.AuthError
	if !errors.As(err, &authErr) {
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
		return
	}

	status := http.StatusBadRequest
	switch authErr.Code {
	case service.CodeEmailAlreadyInUse:
		status = http.StatusConflict
	case service.CodeWrongCredentials, service.CodeInvalidToken, service.CodeTokenExpired:
		status = http.StatusUnauthorized
	case service.CodeTooManyRequests:
		status = http.StatusTooManyRequests
	}

	var details map[string]interface{}
	if status == http.StatusUnauthorized && authErr.Code != service.CodeWrongCredentials {
		details = map[string]interface{}{"redirect": middleware.LoginPath}
	}
	middleware.RespondWithErrorCode(w, status, authErr.Code, service.AuthErrorMessage(authErr.Code), details)
}

// respondCatalogError maps metadata API failures
func respondCatalogError(w http.ResponseWriter, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, catalog.ErrGameNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		logger.Warn("Catalog unavailable", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "the game catalog is unavailable, please try again later")
	default:
		logger.Error("Catalog request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load games")
	}
}
