// Package cacert trusts private certificate authorities, as used by self
// hosted OpenSearch clusters and some PEC providers.
package cacert

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
)

// Load returns a pool holding only the certificates of the PEM file at path.
func Load(path string) (*x509.CertPool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	n := 0
	for {
		var block *pem.Block
		block, b = pem.Decode(b)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("invalid pem block type %s, expected CERTIFICATE", block.Type)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse certificate: %v", err)
		}
		pool.AddCert(cert)
		n++
	}
	if n == 0 {
		return nil, fmt.Errorf("no certificate found in %s", path)
	}
	return pool, nil
}

// TLSConfig trusts the CA at path, or the system roots when path is empty.
func TLSConfig(path string, insecureSkipVerify bool) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: insecureSkipVerify}
	if path == "" {
		return cfg, nil
	}
	pool, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// Transport is an HTTP transport for the given TLS settings.
func Transport(path string, insecureSkipVerify bool) (*http.Transport, error) {
	cfg, err := TLSConfig(path, insecureSkipVerify)
	if err != nil {
		return nil, err
	}
	return &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   cfg,
		ForceAttemptHTTP2: true,
	}, nil
}
