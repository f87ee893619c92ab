package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/firegate/firegate/internal/googleclient"
	jsonwriter "github.com/firegate/firegate/internal/json"
	"github.com/firegate/firegate/internal/log"
	"github.com/firegate/firegate/internal/servicecontext"
	"github.com/firegate/firegate/internal/storage"
	"github.com/firegate/firegate/internal/verifier"
)

// TokenHandlers implements the broker-gated token management endpoints.
// Every handler here runs behind NewBrokerAuthMiddleware, so the request
// context carries a verified identity.
type TokenHandlers struct {
	client   *googleclient.Client
	idTokens verifier.IdentityVerifier
}

// NewTokenHandlers creates the token management handlers
func NewTokenHandlers(client *googleclient.Client, idTokens verifier.IdentityVerifier) *TokenHandlers {
	return &TokenHandlers{
		client:   client,
		idTokens: idTokens,
	}
}

// TokenResponse is the /token reply. Field names follow the JavaScript
// convention the consuming clients expect.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	IDToken     string `json:"idToken,omitempty"`
	IssuedAt    int64  `json:"issuedAt"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// TokenHandler mints a fresh access token from the caller's stored refresh
// token. The caller's Google account comes from the broker session, never
// from the request body.
func (h *TokenHandlers) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	userID, ok := servicecontext.GetGoogleUserID(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return
	}

	token, err := h.client.ExchangeRefreshToken(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			jsonwriter.WriteNotFound(w, "user not found")
			return
		}
		log.LogErrorWithFields("token", "refresh exchange failed", map[string]any{
			"user": userID,
			"err":  err.Error(),
		})
		jsonwriter.WriteBadGateway(w, err.Error())
		return
	}

	response := TokenResponse{
		AccessToken: token.AccessToken,
		IssuedAt:    time.Now().Unix(),
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		response.IDToken = idToken
	}
	if !token.Expiry.IsZero() {
		if seconds := int64(time.Until(token.Expiry).Seconds()); seconds > 0 {
			response.ExpiresIn = seconds
		}
	}

	if err := jsonwriter.Write(w, response); err != nil {
		log.LogErrorWithFields("token", "failed to write token response", map[string]any{
			"err": err.Error(),
		})
	}
}

// RevokeRequest is the /revoke body.
type RevokeRequest struct {
	AccessToken        string `json:"accessToken"`
	RevokeRefreshToken bool   `json:"revokeRefreshToken"`
}

// RevokeHandler revokes the presented access token and, when asked, the
// stored refresh token of the calling user.
func (h *TokenHandlers) RevokeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	userID, ok := servicecontext.GetGoogleUserID(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var request RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		jsonwriter.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if request.AccessToken == "" {
		jsonwriter.WriteBadRequest(w, "accessToken is required")
		return
	}

	err := h.client.RevokeToken(r.Context(), googleclient.RevocationConfig{
		AccessToken:        request.AccessToken,
		RevokeRefreshToken: request.RevokeRefreshToken,
		UserID:             userID,
	})
	if err != nil {
		log.LogErrorWithFields("token", "revocation failed", map[string]any{
			"user": userID,
			"err":  err.Error(),
		})
		jsonwriter.WriteBadGateway(w, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
}

// IntrospectionResponse follows the RFC 7662 shape for ID tokens.
type IntrospectionResponse struct {
	Active        bool   `json:"active"`
	Subject       string `json:"sub,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	HostedDomain  string `json:"hd,omitempty"`
}

// IntrospectHandler inspects an ID token. Access tokens are opaque to this
// service and cannot be introspected here.
func (h *TokenHandlers) IntrospectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		jsonwriter.WriteBadRequest(w, "invalid form body")
		return
	}

	switch hint := r.PostForm.Get("token_type_hint"); hint {
	case "", "id_token":
	case "access_token":
		jsonwriter.WriteUnprocessableEntity(w, "access_token introspection not allowed")
		return
	default:
		jsonwriter.WriteBadRequest(w, "unsupported token_type_hint")
		return
	}

	token := r.PostForm.Get("token")
	if token == "" {
		jsonwriter.WriteBadRequest(w, "token is required")
		return
	}

	claims, err := h.idTokens.Verify(r.Context(), token)
	if err != nil {
		// invalid or expired tokens are reported inactive, not failed
		_ = jsonwriter.Write(w, IntrospectionResponse{Active: false})
		return
	}

	_ = jsonwriter.Write(w, IntrospectionResponse{
		Active:        true,
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
		HostedDomain:  claims.HostedDomain,
	})
}
