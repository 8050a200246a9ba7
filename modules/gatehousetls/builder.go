// Package gatehousetls builds a *tls.Config from an EffectiveConfig-shaped
// set of options: cipher suite and curve selection, SNI-based certificate
// resolution, TLS version gating, and optional mutual TLS. It also
// provides an OCSP Stapler; Builder.Build does not read
// Options.EnableOCSPStapling and never installs a Stapler itself.
// It does not load certificates from arbitrary material formats or issue
// certificates (ACME) — both are out of scope per SPEC_FULL.md §2; it
// only serves certificates a Resolver already has in hand.
package gatehousetls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"go.uber.org/zap"
)

// cipherSuiteByName mirrors project-karpacz/src/server.rs's named-suite
// table. Only TLS 1.0-1.2 suites are listed: Go's crypto/tls does not
// allow restricting which TLS 1.3 suites are offered (see DESIGN.md open
// question 4), so TLS 1.3 suite names are accepted but only logged, not
// applied.
var cipherSuiteByName = map[string]uint16{
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256":       tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384":       tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256": tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":         tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":         tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256":   tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

var tls13SuiteNames = map[string]bool{
	"TLS_AES_128_GCM_SHA256":       true,
	"TLS_AES_256_GCM_SHA384":       true,
	"TLS_CHACHA20_POLY1305_SHA256": true,
}

var curveByName = map[string]tls.CurveID{
	"secp256r1": tls.CurveP256,
	"secp384r1": tls.CurveP384,
	"x25519":    tls.X25519,
}

var versionByName = map[string]uint16{
	"TLSv1.0": tls.VersionTLS10,
	"TLSv1.1": tls.VersionTLS11,
	"TLSv1.2": tls.VersionTLS12,
	"TLSv1.3": tls.VersionTLS13,
}

// Options mirrors the TLS-relevant subset of gatehousehttp.EffectiveConfig,
// kept independent of that package to avoid an import cycle between the
// HTTP pipeline and the TLS builder.
type Options struct {
	TLSMinVersion        string
	TLSMaxVersion        string
	CipherSuite          []string
	ECDHCurve            []string
	UseClientCertificate bool
	EnableOCSPStapling   bool
	EnableHTTP2          bool
}

// Builder constructs *tls.Config values from Options plus a certificate
// Resolver, logging non-fatal oddities (e.g. a named TLS 1.3 suite that
// can't be selectively applied) through Logger.
type Builder struct {
	Resolver *Resolver
	Logger   *zap.Logger
}

// Build validates opts and returns a *tls.Config wired to b.Resolver's
// GetCertificate, failing fast (as the original's server_event_loop
// does at startup) on an invalid version range or unknown suite/curve
// name.
func (b *Builder) Build(opts Options) (*tls.Config, error) {
	nextProtos := []string{"http/1.1", "http/1.0"}
	if opts.EnableHTTP2 {
		nextProtos = append([]string{"h2"}, nextProtos...)
	}
	cfg := &tls.Config{
		GetCertificate: b.Resolver.GetCertificate,
		NextProtos:     nextProtos,
	}

	minV, maxV, err := resolveVersionRange(opts.TLSMinVersion, opts.TLSMaxVersion)
	if err != nil {
		return nil, err
	}
	cfg.MinVersion = minV
	cfg.MaxVersion = maxV

	for _, name := range opts.CipherSuite {
		if id, ok := cipherSuiteByName[name]; ok {
			cfg.CipherSuites = append(cfg.CipherSuites, id)
			continue
		}
		if tls13SuiteNames[name] {
			if b.Logger != nil {
				b.Logger.Warn("cipherSuite entry names a TLS 1.3 suite; Go's crypto/tls cannot selectively restrict TLS 1.3 suites, so it will be offered regardless", zap.String("suite", name))
			}
			continue
		}
		return nil, fmt.Errorf("unknown cipher suite: %s", name)
	}

	for _, name := range opts.ECDHCurve {
		id, ok := curveByName[name]
		if !ok {
			return nil, fmt.Errorf("unknown ECDH curve: %s", name)
		}
		cfg.CurvePreferences = append(cfg.CurvePreferences, id)
	}

	if opts.UseClientCertificate {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}

func resolveVersionRange(minName, maxName string) (min, max uint16, err error) {
	min = tls.VersionTLS12
	max = tls.VersionTLS13
	if minName != "" {
		v, ok := versionByName[minName]
		if !ok {
			return 0, 0, fmt.Errorf("unknown tlsMinVersion: %s", minName)
		}
		min = v
	}
	if maxName != "" {
		v, ok := versionByName[maxName]
		if !ok {
			return 0, 0, fmt.Errorf("unknown tlsMaxVersion: %s", maxName)
		}
		max = v
	}
	if min > max {
		return 0, 0, fmt.Errorf("maximum TLS version is older than minimum (min=%s max=%s)", minName, maxName)
	}
	return min, max, nil
}
