package gatehousehttp

import "github.com/gatehouse-project/gatehouse"

// SNIEntry is a single hostname's certificate/key pair under the `sni`
// map of a scope.
type SNIEntry struct {
	Cert string `json:"cert,omitempty"`
	Key  string `json:"key,omitempty"`
}

// HTTP2Settings mirrors the `http2Settings.*` option group.
type HTTP2Settings struct {
	InitialWindowSize    *int32 `json:"initialWindowSize,omitempty"`
	MaxFrameSize         *int32 `json:"maxFrameSize,omitempty"`
	MaxConcurrentStreams *int32 `json:"maxConcurrentStreams,omitempty"`
	MaxHeaderListSize    *int32 `json:"maxHeaderListSize,omitempty"`
	EnableConnectProtocol *bool `json:"enableConnectProtocol,omitempty"`
}

// Scope is one level (global, host, or location) of the configuration
// tree described in spec.md §3. Every field is a pointer or nil map/slice
// so the merge algorithm in config_resolve.go can tell "unset" apart
// from "set to the zero value".
type Scope struct {
	ServerAdministratorEmail *string `json:"serverAdministratorEmail,omitempty"`
	ErrorPages               []ErrorPage `json:"errorPages,omitempty"`
	LogFilePath              *string `json:"logFilePath,omitempty"`
	ErrorLogFilePath         *string `json:"errorLogFilePath,omitempty"`
	Timeout                  *gatehouse.Duration `json:"timeout,omitempty"`
	AllowDoubleSlashes       *bool   `json:"allowDoubleSlashes,omitempty"`
	CustomHeaders            map[string]string `json:"customHeaders,omitempty"`
	EnableHTTP2              *bool  `json:"enableHTTP2,omitempty"`
	HTTP2Settings            *HTTP2Settings `json:"http2Settings,omitempty"`

	Secure                    *bool   `json:"secure,omitempty"`
	DisableNonEncryptedServer *bool   `json:"disableNonEncryptedServer,omitempty"`
	Port                      *int    `json:"port,omitempty"`
	Sport                     *int    `json:"sport,omitempty"`
	Cert                      *string `json:"cert,omitempty"`
	Key                       *string `json:"key,omitempty"`
	SNI                       map[string]SNIEntry `json:"sni,omitempty"`
	TLSMinVersion             *string `json:"tlsMinVersion,omitempty"`
	TLSMaxVersion             *string `json:"tlsMaxVersion,omitempty"`
	CipherSuite               []string `json:"cipherSuite,omitempty"`
	ECDHCurve                 []string `json:"ecdhCurve,omitempty"`
	UseClientCertificate      *bool   `json:"useClientCertificate,omitempty"`
	EnableOCSPStapling        *bool   `json:"enableOCSPStapling,omitempty"`
	EnableIPSpoofing          *bool   `json:"enableIPSpoofing,omitempty"`
	EnvironmentVariables      map[string]string `json:"environmentVariables,omitempty"`

	Locations map[string]*Scope `json:"locations,omitempty"`
}

// ErrorPage maps a status code (or class, e.g. 4 for all 4xx) to a
// static file to serve instead of the built-in default page.
type ErrorPage struct {
	Code int    `json:"code"`
	Path string `json:"path"`
}

// HostScope is a virtual host: its selector (exact name, wildcard, or
// "default") plus its Scope overrides.
type HostScope struct {
	Name string `json:"name"`
	Scope
}

// GlobalConfig is the root of the configuration tree: the global scope
// plus all virtual hosts.
type GlobalConfig struct {
	Scope
	Hosts []HostScope `json:"hosts,omitempty"`
}

// EffectiveConfig is the fully merged, typed option set in force for a
// single request, per spec.md §3. Every option has a concrete value
// (defaults already applied) once config_resolve.go returns one.
type EffectiveConfig struct {
	ServerAdministratorEmail string
	ErrorPages               []ErrorPage
	LogFilePath              string
	ErrorLogFilePath         string
	Timeout                  gatehouse.Duration
	AllowDoubleSlashes       bool
	CustomHeaders            map[string]string
	EnableHTTP2              bool
	HTTP2Settings            HTTP2Settings

	Secure                    bool
	DisableNonEncryptedServer bool
	Port                      int
	Sport                     int
	Cert                      string
	Key                       string
	SNI                       map[string]SNIEntry
	TLSMinVersion             string
	TLSMaxVersion             string
	CipherSuite               []string
	ECDHCurve                 []string
	UseClientCertificate      bool
	EnableOCSPStapling        bool
	EnableIPSpoofing          bool
	EnvironmentVariables      map[string]string
}

// DefaultTimeoutMillis is the timeout applied when no scope sets one,
// matching spec.md's documented default of 300000ms.
const DefaultTimeoutMillis = 300000
