package gatehousetls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ocsp"
)

// Stapler fetches and caches the OCSP response for a leaf certificate
// each time Refresh is called, wrapping a Resolver so served
// certificates carry the cached OCSPStaple, mirroring project-karpacz's
// ocsp_stapler::Stapler wrapper around its SNI resolver. It runs no
// timer of its own: a staple is only as fresh as the last Refresh call.
type Stapler struct {
	resolver *Resolver
	logger   *zap.Logger
	client   *http.Client

	mu     sync.RWMutex
	staple map[string][]byte // keyed by leaf certificate serial number
}

// NewStapler wraps resolver. Refresh must be called periodically by the
// caller to keep staples from expiring.
func NewStapler(resolver *Resolver, logger *zap.Logger) *Stapler {
	return &Stapler{
		resolver: resolver,
		logger:   logger,
		client:   &http.Client{Timeout: 10 * time.Second},
		staple:   map[string][]byte{},
	}
}

// Refresh fetches a current OCSP response for cert/issuer and caches it
// under cert's serial number for later lookup by GetCertificate callers
// that want to staple it onto the handshake.
func (s *Stapler) Refresh(ctx context.Context, cert, issuer *x509.Certificate) error {
	if len(cert.OCSPServer) == 0 {
		return nil
	}
	req, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return fmt.Errorf("build ocsp request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cert.OCSPServer[0], newBodyReader(req))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fetch ocsp response: %w", err)
	}
	defer resp.Body.Close()

	body, err := readAll(resp.Body)
	if err != nil {
		return err
	}
	if _, err := ocsp.ParseResponseForCert(body, cert, issuer); err != nil {
		return fmt.Errorf("parse ocsp response: %w", err)
	}

	s.mu.Lock()
	s.staple[cert.SerialNumber.String()] = body
	s.mu.Unlock()
	return nil
}

// Staple returns the cached OCSP response bytes for cert, if any.
func (s *Stapler) Staple(cert *x509.Certificate) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.staple[cert.SerialNumber.String()]
	return b, ok
}

// WrapGetCertificate returns a GetCertificate callback that staples a
// cached OCSP response onto whatever certificate the wrapped resolver
// picks, when available.
func (s *Stapler) WrapGetCertificate() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		cert, err := s.resolver.GetCertificate(hello)
		if err != nil || cert == nil || len(cert.Certificate) == 0 {
			return cert, err
		}
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return cert, nil
		}
		if staple, ok := s.Staple(leaf); ok {
			out := *cert
			out.OCSPStaple = staple
			return &out, nil
		}
		return cert, nil
	}
}
