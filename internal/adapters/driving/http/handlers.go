package http

import (
	"encoding/json"
	"net/http"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and Redis connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Dependency unavailable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// OAuth flow endpoints

// handleOAuthAuthorize godoc
// @Summary      Start a marketplace connect flow
// @Description  Issues a state token and returns the provider authorization URL for top-level navigation (admin only)
// @Tags         OAuth
// @Produce      json
// @Security     BearerAuth
// @Param        marketplace  path      string  true  "Marketplace identifier"
// @Success      200  {object}  driving.AuthorizeResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Unknown marketplace"
// @Failure      409  {object}  ErrorResponse  "Credentials not configured"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /oauth/{marketplace}/authorize [post]
func (s *Server) handleOAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	resp, status, msg := s.authorize(r)
	if resp == nil {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleOAuthConnect godoc
// @Summary      Redirect to the provider consent page
// @Description  Issues a state token and 302s the browser to the provider authorization URL (admin only)
// @Tags         OAuth
// @Security     BearerAuth
// @Param        marketplace  path  string  true  "Marketplace identifier"
// @Success      302  "Redirect to provider"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Unknown marketplace"
// @Failure      409  {object}  ErrorResponse  "Credentials not configured"
// @Router       /oauth/{marketplace}/connect [get]
func (s *Server) handleOAuthConnect(w http.ResponseWriter, r *http.Request) {
	resp, status, msg := s.authorize(r)
	if resp == nil {
		writeError(w, status, msg)
		return
	}
	http.Redirect(w, r, resp.AuthorizationURL, http.StatusFound)
}

// authorize runs the shared issuance path for both initiation endpoints.
func (s *Server) authorize(r *http.Request) (*driving.AuthorizeResponse, int, string) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		return nil, http.StatusUnauthorized, "unauthorized"
	}

	resp, err := s.connectService.Authorize(r.Context(), driving.AuthorizeRequest{
		OrganizationID: authCtx.OrganizationID,
		Marketplace:    domain.Marketplace(r.PathValue("marketplace")),
	})
	if err != nil {
		switch err {
		case domain.ErrMarketplaceNotFound:
			return nil, http.StatusNotFound, "unknown marketplace"
		case domain.ErrCredentialNotConfigured:
			return nil, http.StatusConflict, "marketplace credentials not configured"
		case domain.ErrInvalidInput:
			return nil, http.StatusBadRequest, "invalid request"
		default:
			return nil, http.StatusInternalServerError, "failed to start connect flow"
		}
	}

	return resp, http.StatusOK, ""
}

// handleOAuthCallback godoc
// @Summary      OAuth provider callback
// @Description  Consumes the state token, exchanges the code, and redirects the browser back to the dashboard. The redirect carries only a "connected" or "error" marker.
// @Tags         OAuth
// @Param        code   query  string  false  "Authorization code"
// @Param        state  query  string  false  "State token"
// @Param        error  query  string  false  "Provider error code"
// @Success      302  "Redirect to dashboard"
// @Router       /oauth/callback [get]
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	_, err := s.connectService.Callback(r.Context(), driving.CallbackRequest{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})

	// Every outcome collapses to one of two markers at the browser
	// boundary; diagnostics live in the server logs.
	marker := "?connected"
	if err != nil {
		marker = "?error"
	}
	http.Redirect(w, r, s.appReturnURL+marker, http.StatusFound)
}

// Credential endpoints

// handleListCredentials godoc
// @Summary      List marketplace credentials
// @Description  Returns redacted credential summaries for the caller's organization (admin only). Secrets never appear in the response.
// @Tags         Credentials
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.CredentialSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /credentials [get]
func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := s.connectService.Credentials(r.Context(), authCtx.OrganizationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list credentials")
		return
	}

	if summaries == nil {
		summaries = []*domain.CredentialSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleConfigureCredential godoc
// @Summary      Configure marketplace credentials
// @Description  Stores the OAuth client configuration for a marketplace (admin only). Previously exchanged tokens are kept.
// @Tags         Credentials
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        marketplace  path      string                   true  "Marketplace identifier"
// @Param        request      body      driving.ConfigureRequest  true  "Client configuration"
// @Success      200  {object}  domain.CredentialSummary
// @Failure      400  {object}  ErrorResponse  "Invalid input"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Unknown marketplace"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /credentials/{marketplace} [put]
func (s *Server) handleConfigureCredential(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.ConfigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OrganizationID = authCtx.OrganizationID
	req.Marketplace = domain.Marketplace(r.PathValue("marketplace"))

	summary, err := s.connectService.Configure(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrMarketplaceNotFound:
			writeError(w, http.StatusNotFound, "unknown marketplace")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "client_id, client_secret, and redirect_uri are required")
		default:
			writeError(w, http.StatusInternalServerError, "failed to store configuration")
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Diagnostics endpoints

// handleConfigDiagnostics godoc
// @Summary      Configuration diagnostics
// @Description  Reports presence and length of each configured secret, never values (admin only)
// @Tags         Diagnostics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.SecretDiagnostic
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Router       /diagnostics/config [get]
func (s *Server) handleConfigDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags := s.diagnostics
	if diags == nil {
		diags = []domain.SecretDiagnostic{}
	}
	writeJSON(w, http.StatusOK, diags)
}

// Maintenance endpoints

// handleSweep godoc
// @Summary      Sweep expired state tokens
// @Description  Deletes every expired OAuth state token and reports the count. Authorized by the maintenance token or an admin session.
// @Tags         Maintenance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  driving.SweepResult
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Sweep failed"
// @Router       /maintenance/sweep [post]
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if !s.sweepAuthorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := s.sweeper.SweepOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// sweepAuthorized accepts either the shared maintenance token (cron
// callers have no dashboard session) or an admin JWT.
func (s *Server) sweepAuthorized(r *http.Request) bool {
	token := extractBearerToken(r)
	if token == "" {
		return false
	}

	if s.maintenanceToken != "" && token == s.maintenanceToken {
		return true
	}

	authCtx, err := s.verifier.VerifyToken(token)
	if err != nil {
		return false
	}
	return authCtx.IsAdmin()
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
