package gatehousetls

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRejectsInvertedVersionRange(t *testing.T) {
	b := &Builder{Resolver: NewResolver()}
	_, err := b.Build(Options{TLSMinVersion: "TLSv1.3", TLSMaxVersion: "TLSv1.2"})
	require.Error(t, err)
}

func TestBuildRejectsUnknownCipherSuite(t *testing.T) {
	b := &Builder{Resolver: NewResolver()}
	_, err := b.Build(Options{CipherSuite: []string{"NOT_A_REAL_SUITE"}})
	require.Error(t, err)
}

func TestBuildAcceptsKnownSuitesAndCurves(t *testing.T) {
	b := &Builder{Resolver: NewResolver()}
	cfg, err := b.Build(Options{
		CipherSuite: []string{"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"},
		ECDHCurve:   []string{"x25519"},
	})
	require.NoError(t, err)
	require.Contains(t, cfg.CipherSuites, uint16(tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256))
	require.Contains(t, cfg.CurvePreferences, tls.X25519)
}

func TestBuildWarnsButAcceptsTLS13SuiteName(t *testing.T) {
	b := &Builder{Resolver: NewResolver()}
	_, err := b.Build(Options{CipherSuite: []string{"TLS_AES_128_GCM_SHA256"}})
	require.NoError(t, err)
}

func TestClientCertificateRequiresVerification(t *testing.T) {
	b := &Builder{Resolver: NewResolver()}
	cfg, err := b.Build(Options{UseClientCertificate: true})
	require.NoError(t, err)
	require.Equal(t, tls.RequireAndVerifyClientCert, cfg.ClientAuth)
}

func TestALPNOmitsH2ByDefault(t *testing.T) {
	b := &Builder{Resolver: NewResolver()}
	cfg, err := b.Build(Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"http/1.1", "http/1.0"}, cfg.NextProtos)
}

func TestALPNAdvertisesH2FirstWhenEnabled(t *testing.T) {
	b := &Builder{Resolver: NewResolver()}
	cfg, err := b.Build(Options{EnableHTTP2: true})
	require.NoError(t, err)
	require.Equal(t, []string{"h2", "http/1.1", "http/1.0"}, cfg.NextProtos)
}
