package mtls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Files names the PEM files used to build a client TLS configuration.
// Every field is optional: without CACert the system roots are used, and
// the client certificate is only presented when both ClientCert and
// ClientKey are set.
type Files struct {
	CACert     string
	ClientCert string
	ClientKey  string
	ServerName string
}

// Empty reports whether no TLS material was configured
func (f Files) Empty() bool {
	return f.CACert == "" && f.ClientCert == "" && f.ClientKey == "" && f.ServerName == ""
}

// LoadClientTLSConfig creates a TLS configuration for (m)TLS clients
func LoadClientTLSConfig(f Files) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName: f.ServerName,
		MinVersion: tls.VersionTLS12,
	}

	if f.CACert != "" {
		caCert, err := os.ReadFile(f.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", f.CACert)
		}
		cfg.RootCAs = pool
	}

	switch {
	case f.ClientCert != "" && f.ClientKey != "":
		pair, err := tls.LoadX509KeyPair(f.ClientCert, f.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	case f.ClientCert != "" || f.ClientKey != "":
		return nil, fmt.Errorf("client_cert and client_key must be set together")
	}

	return cfg, nil
}
