package gatehousetls

import (
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
)

// Resolver is a per-hostname certificate cache, modeled on the shape of
// certmagic.Cache without its ACME issuance machinery (out of scope —
// see DESIGN.md): it only serves certificates that have already been
// loaded into it via Add.
type Resolver struct {
	mu       sync.RWMutex
	byHost   map[string]*tls.Certificate
	fallback *tls.Certificate
}

// NewResolver returns an empty Resolver; use Add to populate it and
// SetFallback to set the certificate served when no SNI name matches
// (mirroring the original's load_fallback_cert_key before per-host
// entries are loaded).
func NewResolver() *Resolver {
	return &Resolver{byHost: map[string]*tls.Certificate{}}
}

// Add registers cert for exact-match lookups against host (case
// folded), matching the `sni` map's hostname keys.
func (r *Resolver) Add(host string, cert tls.Certificate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHost[strings.ToLower(host)] = &cert
}

// SetFallback sets the certificate served for a ClientHello whose SNI
// name has no exact entry, i.e. the scope's top-level cert/key pair.
func (r *Resolver) SetFallback(cert tls.Certificate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = &cert
}

// GetCertificate is wired as tls.Config.GetCertificate.
func (r *Resolver) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := strings.ToLower(hello.ServerName)
	if cert, ok := r.byHost[name]; ok {
		return cert, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no certificate configured for SNI name %q", hello.ServerName)
}
