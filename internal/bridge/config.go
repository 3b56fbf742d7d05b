package bridge

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"
)

// Config describes the broker connection. When all three TLS file paths are
// set the mutual-auth variant is used; when none are set the plain variant
// is used; anything in between is a configuration error.
type Config struct {
	BrokerURL string // e.g. tcp://localhost:1883 or tls://xxx.iot.amazonaws.com:8883
	Topic     string

	CAFile   string
	CertFile string
	KeyFile  string
}

const (
	reconnectPeriod = 5 * time.Second
	connectTimeout  = 30 * time.Second
	keepAlive       = 60 * time.Second
)

var (
	ErrMissingBroker = errors.New("mqtt broker URL is required")
	ErrMissingTopic  = errors.New("mqtt topic is required")
	ErrPartialTLS    = errors.New("mqtt TLS requires ca_file, cert_file and key_file together")
)

// Validate checks the config without touching the network.
func (c Config) Validate() error {
	if c.BrokerURL == "" {
		return ErrMissingBroker
	}
	if c.Topic == "" {
		return ErrMissingTopic
	}
	set := 0
	for _, f := range []string{c.CAFile, c.CertFile, c.KeyFile} {
		if f != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return ErrPartialTLS
	}
	return nil
}

// UseTLS reports whether the config selects the mutual-auth variant.
func (c Config) UseTLS() bool {
	return c.CAFile != "" && c.CertFile != "" && c.KeyFile != ""
}

// tlsConfig loads the CA pool and client keypair from the configured files.
func (c Config) tlsConfig() (*tls.Config, error) {
	caPEM, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("CA certificate %q contains no valid PEM data", c.CAFile)
	}
	pair, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
