package gatehousehttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveConfigGlobalDefaults(t *testing.T) {
	global := &GlobalConfig{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	cfg, err := ResolveConfig(global, req, false)
	require.NoError(t, err)
	require.Equal(t, DefaultTimeoutMillis, int(time.Duration(cfg.Timeout).Milliseconds()))
}

func TestResolveConfigHostPrecedence(t *testing.T) {
	exactEmail := "exact@example.com"
	wildcardEmail := "wild@example.com"
	defaultEmail := "default@example.com"

	global := &GlobalConfig{
		Hosts: []HostScope{
			{Name: "default", Scope: Scope{ServerAdministratorEmail: &defaultEmail}},
			{Name: "*.example.com", Scope: Scope{ServerAdministratorEmail: &wildcardEmail}},
			{Name: "www.example.com", Scope: Scope{ServerAdministratorEmail: &exactEmail}},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "www.example.com"
	cfg, err := ResolveConfig(global, req, false)
	require.NoError(t, err)
	require.Equal(t, exactEmail, cfg.ServerAdministratorEmail)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Host = "other.example.com"
	cfg2, err := ResolveConfig(global, req2, false)
	require.NoError(t, err)
	require.Equal(t, wildcardEmail, cfg2.ServerAdministratorEmail)

	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.Host = "unrelated.test"
	cfg3, err := ResolveConfig(global, req3, false)
	require.NoError(t, err)
	require.Equal(t, defaultEmail, cfg3.ServerAdministratorEmail)
}

func TestResolveConfigLocationLongestPrefixWins(t *testing.T) {
	rootHeaders := map[string]string{"X-Scope": "root"}
	apiHeaders := map[string]string{"X-Scope": "api"}
	apiV2Headers := map[string]string{"X-Scope": "api-v2"}

	global := &GlobalConfig{
		Scope: Scope{
			CustomHeaders: rootHeaders,
			Locations: map[string]*Scope{
				"/api":    {CustomHeaders: apiHeaders},
				"/api/v2": {CustomHeaders: apiV2Headers},
			},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v2/widgets", nil)
	cfg, err := ResolveConfig(global, req, false)
	require.NoError(t, err)
	require.Equal(t, "api-v2", cfg.CustomHeaders["X-Scope"])

	req2 := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	cfg2, err := ResolveConfig(global, req2, false)
	require.NoError(t, err)
	require.Equal(t, "api", cfg2.CustomHeaders["X-Scope"])
}

func TestResolveConfigProxyBypassesHostSelection(t *testing.T) {
	hostEmail := "host@example.com"
	global := &GlobalConfig{
		Hosts: []HostScope{
			{Name: "www.example.com", Scope: Scope{ServerAdministratorEmail: &hostEmail}},
		},
	}
	req := httptest.NewRequest(http.MethodConnect, "example.com:443", nil)
	req.Host = "www.example.com"
	cfg, err := ResolveConfig(global, req, true)
	require.NoError(t, err)
	require.Empty(t, cfg.ServerAdministratorEmail)
}
