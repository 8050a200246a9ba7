package gatehousetls

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolverFallsBackWhenNoExactMatch(t *testing.T) {
	r := NewResolver()
	fallback := tls.Certificate{Certificate: [][]byte{[]byte("fallback")}}
	r.SetFallback(fallback)

	cert, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "unknown.example.com"})
	require.NoError(t, err)
	require.Equal(t, fallback.Certificate, cert.Certificate)
}

func TestResolverExactMatchWins(t *testing.T) {
	r := NewResolver()
	r.SetFallback(tls.Certificate{Certificate: [][]byte{[]byte("fallback")}})
	specific := tls.Certificate{Certificate: [][]byte{[]byte("specific")}}
	r.Add("www.example.com", specific)

	cert, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "WWW.EXAMPLE.COM"})
	require.NoError(t, err)
	require.Equal(t, specific.Certificate, cert.Certificate)
}

func TestResolverErrorsWithNoFallbackOrMatch(t *testing.T) {
	r := NewResolver()
	_, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "nope.example.com"})
	require.Error(t, err)
}
