package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// verifyTimeout bounds the upstream round-trip of a key verification.
const verifyTimeout = 15 * time.Second

// SaveProviderKeyRequest is the body for PUT /api/v1/providers/keys.
// APIKey is write-only: it is stored and never echoed back.
type SaveProviderKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// SaveProviderKeyResponse is returned by PUT /api/v1/providers/keys.
type SaveProviderKeyResponse struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
}

// ProvidersResponse is returned by GET /api/v1/providers.
type ProvidersResponse struct {
	Providers []ProviderStatus `json:"providers"`
}

// ProviderStatus describes one configured provider. Configured means a
// usable credential exists; keys themselves are never included.
type ProviderStatus struct {
	Provider   string            `json:"provider"`
	Configured bool              `json:"configured"`
	Tiers      map[string]string `json:"tiers,omitempty"`
}

// VerifyProviderResponse is returned by POST /api/v1/providers/:provider/verify.
type VerifyProviderResponse struct {
	Provider string `json:"provider"`
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`
}

// saveProviderKeyHandler handles PUT /api/v1/providers/keys.
// Stores a per-user provider credential and rebuilds the affected provider
// clients so the key takes effect without a restart.
func (s *Server) saveProviderKeyHandler(c *echo.Context) error {
	if s.apiKeys == nil || s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "provider key management not available")
	}

	// 1. Bind and validate request body
	var req SaveProviderKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Provider == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider is required")
	}
	if req.APIKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "api_key is required")
	}

	ptype := config.ProviderType(req.Provider)
	if _, err := s.cfg.GetProvider(ptype); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unknown provider %q", req.Provider))
	}

	// 2. Store the credential for the acting user
	userID := extractUserID(c)
	if err := s.apiKeys.SaveKey(c.Request().Context(), userID, ptype, req.APIKey); err != nil {
		return mapServiceError(err)
	}

	// 3. Reload key sets and rebuild affected clients
	sets, err := s.apiKeys.LoadKeySets(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	s.registry.UpdateKeys(sets)

	return c.JSON(http.StatusOK, SaveProviderKeyResponse{
		Provider: req.Provider,
		Status:   "saved",
	})
}

// listProvidersHandler handles GET /api/v1/providers.
func (s *Server) listProvidersHandler(c *echo.Context) error {
	if s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "provider registry not available")
	}

	configured := make(map[config.ProviderType]bool)
	for _, p := range s.registry.ConfiguredProviders() {
		configured[p] = true
	}

	response := ProvidersResponse{Providers: []ProviderStatus{}}
	for ptype, pcfg := range s.cfg.ProviderRegistry.GetAll() {
		status := ProviderStatus{
			Provider:   string(ptype),
			Configured: configured[ptype],
		}
		if len(pcfg.Tiers) > 0 {
			status.Tiers = make(map[string]string, len(pcfg.Tiers))
			for tier, tm := range pcfg.Tiers {
				status.Tiers[string(tier)] = tm.Model
			}
		}
		response.Providers = append(response.Providers, status)
	}

	// Sort for deterministic output.
	sort.Slice(response.Providers, func(i, j int) bool {
		return response.Providers[i].Provider < response.Providers[j].Provider
	})

	return c.JSON(http.StatusOK, response)
}

// verifyProviderHandler handles POST /api/v1/providers/:provider/verify.
// Performs a minimal completion against the provider with the currently
// effective key. A failed verification is a successful check with a
// negative outcome, so it returns 200 with the reason rather than an error
// status; only a missing credential maps to 503.
func (s *Server) verifyProviderHandler(c *echo.Context) error {
	if s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "provider registry not available")
	}

	name := c.Param("provider")
	ptype := config.ProviderType(name)
	if _, err := s.cfg.GetProvider(ptype); err != nil {
		return echo.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("unknown provider %q", name))
	}

	verifyCtx, cancel := context.WithTimeout(c.Request().Context(), verifyTimeout)
	defer cancel()

	if err := s.registry.Verify(verifyCtx, ptype); err != nil {
		if errors.Is(err, providers.ErrProviderNotConfigured) {
			return mapServiceError(err)
		}
		return c.JSON(http.StatusOK, VerifyProviderResponse{
			Provider: name,
			Verified: false,
			Error:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, VerifyProviderResponse{
		Provider: name,
		Verified: true,
	})
}
