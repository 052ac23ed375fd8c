package handlers

import (
	"net/http"
	"net/url"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
)

// landingPaths are the frontend pages the browser returns to after consent
var landingPaths = map[models.Provider]string{
	models.ProviderGoogle:      "/calendar",
	models.ProviderRingCentral: "/dashboard/ringcentral",
}

// ConnectResponse carries the consent URL for clients that navigate themselves
type ConnectResponse struct {
	AuthURL string `json:"authUrl"`
}

// DisconnectResponse reports whether a stored credential was removed
type DisconnectResponse struct {
	Provider     models.Provider `json:"provider"`
	Disconnected bool            `json:"disconnected"`
}

// Connect starts the authorization code flow
// @Summary Connect a provider account
// @Description Redirects the browser to the provider consent screen. With mode=json the consent URL is returned instead.
// @Tags oauth
// @Produce json
// @Security BearerAuth
// @Param provider path string true "google or ringcentral"
// @Param mode query string false "json to receive the URL instead of a redirect"
// @Success 200 {object} ConnectResponse
// @Success 302 {string} string "Redirect to the consent screen"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/{provider} [get]
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	provider, err := providerFromRequest(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	authURL, err := h.handshake.Initiate(r.Context(), owner, provider)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	if r.URL.Query().Get("mode") == "json" {
		sendJSON(w, http.StatusOK, ConnectResponse{AuthURL: authURL})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the flow and sends the browser back to the frontend
// @Summary OAuth callback
// @Description Validates the state, exchanges the code and stores the credential, then redirects to the frontend with the outcome.
// @Tags oauth
// @Param provider path string true "google or ringcentral"
// @Param code query string false "Authorization code"
// @Param state query string false "Signed state"
// @Param error query string false "Provider error"
// @Success 302 {string} string "Redirect to the frontend"
// @Failure 400 {object} ErrorResponse
// @Router /auth/{provider}/callback [get]
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	provider, err := providerFromRequest(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	q := r.URL.Query()
	cred, err := h.handshake.HandleCallback(r.Context(), provider, oauth.Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		h.logger.WithContext(r.Context()).Warn("OAuth callback failed",
			logging.Field{"provider", string(provider)},
			logging.Err(err),
		)
	} else {
		h.logger.WithContext(r.Context()).Info("OAuth callback completed",
			logging.Field{"provider", string(provider)},
			logging.Field{"owner", cred.Owner.Key()},
		)
	}

	http.Redirect(w, r, h.landingURL(provider, err), http.StatusFound)
}

// landingURL builds the frontend redirect for a finished callback
func (h *Handlers) landingURL(provider models.Provider, err error) string {
	q := url.Values{}
	name := string(provider)
	if err == nil {
		q.Set(name, "connected")
	} else {
		q.Set(name, "error")
		q.Set("reason", string(errors.GetType(err)))
		q.Set("message", callbackMessage(err))
	}
	return h.config.FrontendURL + landingPaths[provider] + "?" + q.Encode()
}

// callbackMessage is the user facing text for a failed callback
func callbackMessage(err error) string {
	switch errors.GetType(err) {
	case errors.ErrTypeProviderDenied:
		return "Authorization was denied"
	case errors.ErrTypeInvalidState:
		return "The authorization request expired or was already used, please try again"
	case errors.ErrTypeValidation:
		return "A signed in user is required to connect an account"
	case errors.ErrTypeProvider:
		if errors.HTTPStatus(err) == http.StatusBadRequest {
			return "The authorization code was rejected, please try again"
		}
		return "The provider could not complete the connection"
	case errors.ErrTypeStorage, errors.ErrTypeInternal:
		return "Could not save the connection"
	default:
		return "Could not reach the provider, please try again"
	}
}

// Status reports whether the caller has connected the provider
// @Summary Connection status
// @Description Reports the connected account without calling the provider
// @Tags oauth
// @Produce json
// @Security BearerAuth
// @Param provider path string true "google or ringcentral"
// @Success 200 {object} oauth2.Status
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/{provider}/status [get]
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	provider, err := providerFromRequest(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	status, err := h.connections.Status(r.Context(), owner, provider)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, status)
}

// Disconnect removes the caller's credential. Repeating it is not an error.
// @Summary Disconnect a provider account
// @Tags oauth
// @Produce json
// @Security BearerAuth
// @Param provider path string true "google or ringcentral"
// @Success 200 {object} DisconnectResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/{provider}/disconnect [post]
// @Router /auth/{provider}/disconnect [delete]
func (h *Handlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	provider, err := providerFromRequest(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	owner, err := h.owner(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	removed, err := h.connections.Disconnect(r.Context(), owner, provider)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, DisconnectResponse{Provider: provider, Disconnected: removed})
}
