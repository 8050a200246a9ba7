package gatehousehttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/gatehouse-project/gatehouse"
)

// ResolveConfig implements spec.md §4.3's deterministic merge: global,
// then the most specific matching host, then the most specific matching
// location. Scalars override as scopes are folded in order; mappings
// (CustomHeaders, SNI, EnvironmentVariables) deep-merge key by key;
// sequences (ErrorPages, CipherSuite, ECDHCurve) replace wholesale when a
// narrower scope sets them. Proxy and CONNECT requests skip host-header
// selection and resolve against the global scope's locations directly,
// matching the original's bypass for requests that have no meaningful
// Host-based virtual host (ferron's combine_config call sites).
func ResolveConfig(global *GlobalConfig, req *http.Request, isProxyOrConnect bool) (*EffectiveConfig, error) {
	merged := newDefaultScope()
	fold(merged, &global.Scope)

	if !isProxyOrConnect {
		if host := selectHost(global.Hosts, req.Host); host != nil {
			fold(merged, &host.Scope)
		}
	}

	if loc := selectLocation(merged.Locations, req.URL.Path); loc != nil {
		fold(merged, loc)
	}

	return toEffective(merged), nil
}

// selectHost applies the precedence exact > wildcard > ip:port > default.
func selectHost(hosts []HostScope, hostHeader string) *HostScope {
	name := strings.ToLower(hostHeader)
	bareName := name
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		bareName = name[:i]
	}

	var wildcard, ipPort, def *HostScope
	for i := range hosts {
		h := &hosts[i]
		switch {
		case strings.EqualFold(h.Name, bareName) || strings.EqualFold(h.Name, name):
			return h
		case strings.HasPrefix(h.Name, "*.") && wildcardMatches(h.Name, bareName):
			if wildcard == nil {
				wildcard = h
			}
		case h.Name == name || h.Name == bareName:
			if ipPort == nil {
				ipPort = h
			}
		case strings.EqualFold(h.Name, "default") || h.Name == "*":
			if def == nil {
				def = h
			}
		}
	}
	switch {
	case wildcard != nil:
		return wildcard
	case ipPort != nil:
		return ipPort
	default:
		return def
	}
}

func wildcardMatches(pattern, host string) bool {
	suffix := pattern[1:] // ".example.com"
	return strings.HasSuffix(host, suffix) && host != suffix[1:]
}

// selectLocation returns the scope for the longest path prefix match.
func selectLocation(locations map[string]*Scope, path string) *Scope {
	var best *Scope
	bestLen := -1
	for prefix, scope := range locations {
		if strings.HasPrefix(path, prefix) && len(prefix) > bestLen {
			best = scope
			bestLen = len(prefix)
		}
	}
	return best
}

func newDefaultScope() *Scope {
	return &Scope{Locations: map[string]*Scope{}}
}

// fold merges src into dst in place, implementing the override/deep-merge/
// replace rules for each field kind.
func fold(dst *Scope, src *Scope) {
	if src.ServerAdministratorEmail != nil {
		dst.ServerAdministratorEmail = src.ServerAdministratorEmail
	}
	if src.ErrorPages != nil {
		dst.ErrorPages = src.ErrorPages
	}
	if src.LogFilePath != nil {
		dst.LogFilePath = src.LogFilePath
	}
	if src.ErrorLogFilePath != nil {
		dst.ErrorLogFilePath = src.ErrorLogFilePath
	}
	if src.Timeout != nil {
		dst.Timeout = src.Timeout
	}
	if src.AllowDoubleSlashes != nil {
		dst.AllowDoubleSlashes = src.AllowDoubleSlashes
	}
	dst.CustomHeaders = mergeStringMap(dst.CustomHeaders, src.CustomHeaders)
	if src.EnableHTTP2 != nil {
		dst.EnableHTTP2 = src.EnableHTTP2
	}
	if src.HTTP2Settings != nil {
		dst.HTTP2Settings = src.HTTP2Settings
	}
	if src.Secure != nil {
		dst.Secure = src.Secure
	}
	if src.DisableNonEncryptedServer != nil {
		dst.DisableNonEncryptedServer = src.DisableNonEncryptedServer
	}
	if src.Port != nil {
		dst.Port = src.Port
	}
	if src.Sport != nil {
		dst.Sport = src.Sport
	}
	if src.Cert != nil {
		dst.Cert = src.Cert
	}
	if src.Key != nil {
		dst.Key = src.Key
	}
	dst.SNI = mergeSNIMap(dst.SNI, src.SNI)
	if src.TLSMinVersion != nil {
		dst.TLSMinVersion = src.TLSMinVersion
	}
	if src.TLSMaxVersion != nil {
		dst.TLSMaxVersion = src.TLSMaxVersion
	}
	if src.CipherSuite != nil {
		dst.CipherSuite = src.CipherSuite
	}
	if src.ECDHCurve != nil {
		dst.ECDHCurve = src.ECDHCurve
	}
	if src.UseClientCertificate != nil {
		dst.UseClientCertificate = src.UseClientCertificate
	}
	if src.EnableOCSPStapling != nil {
		dst.EnableOCSPStapling = src.EnableOCSPStapling
	}
	if src.EnableIPSpoofing != nil {
		dst.EnableIPSpoofing = src.EnableIPSpoofing
	}
	dst.EnvironmentVariables = mergeStringMap(dst.EnvironmentVariables, src.EnvironmentVariables)

	if src.Locations != nil {
		if dst.Locations == nil {
			dst.Locations = map[string]*Scope{}
		}
		for prefix, loc := range src.Locations {
			dst.Locations[prefix] = loc
		}
	}
}

func mergeStringMap(dst, src map[string]string) map[string]string {
	if src == nil {
		return dst
	}
	if dst == nil {
		dst = map[string]string{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func mergeSNIMap(dst, src map[string]SNIEntry) map[string]SNIEntry {
	if src == nil {
		return dst
	}
	if dst == nil {
		dst = map[string]SNIEntry{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func toEffective(s *Scope) *EffectiveConfig {
	e := &EffectiveConfig{
		CustomHeaders:        s.CustomHeaders,
		SNI:                  s.SNI,
		EnvironmentVariables: s.EnvironmentVariables,
		Timeout:              gatehouse.Duration(DefaultTimeoutMillis * time.Millisecond),
	}
	if s.ServerAdministratorEmail != nil {
		e.ServerAdministratorEmail = *s.ServerAdministratorEmail
	}
	if s.ErrorPages != nil {
		e.ErrorPages = s.ErrorPages
	}
	if s.LogFilePath != nil {
		e.LogFilePath = *s.LogFilePath
	}
	if s.ErrorLogFilePath != nil {
		e.ErrorLogFilePath = *s.ErrorLogFilePath
	}
	if s.Timeout != nil {
		e.Timeout = *s.Timeout
	}
	if s.AllowDoubleSlashes != nil {
		e.AllowDoubleSlashes = *s.AllowDoubleSlashes
	}
	if s.EnableHTTP2 != nil {
		e.EnableHTTP2 = *s.EnableHTTP2
	}
	if s.HTTP2Settings != nil {
		e.HTTP2Settings = *s.HTTP2Settings
	}
	if s.Secure != nil {
		e.Secure = *s.Secure
	}
	if s.DisableNonEncryptedServer != nil {
		e.DisableNonEncryptedServer = *s.DisableNonEncryptedServer
	}
	if s.Port != nil {
		e.Port = *s.Port
	}
	if s.Sport != nil {
		e.Sport = *s.Sport
	}
	if s.Cert != nil {
		e.Cert = *s.Cert
	}
	if s.Key != nil {
		e.Key = *s.Key
	}
	if s.TLSMinVersion != nil {
		e.TLSMinVersion = *s.TLSMinVersion
	}
	if s.TLSMaxVersion != nil {
		e.TLSMaxVersion = *s.TLSMaxVersion
	}
	if s.CipherSuite != nil {
		e.CipherSuite = s.CipherSuite
	}
	if s.ECDHCurve != nil {
		e.ECDHCurve = s.ECDHCurve
	}
	if s.UseClientCertificate != nil {
		e.UseClientCertificate = *s.UseClientCertificate
	}
	if s.EnableOCSPStapling != nil {
		e.EnableOCSPStapling = *s.EnableOCSPStapling
	}
	if s.EnableIPSpoofing != nil {
		e.EnableIPSpoofing = *s.EnableIPSpoofing
	}
	return e
}
