/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package kv

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/hostmetrics/pkg/models"
)

// TLSConfig builds the mTLS client config for cfg. It returns nil when cfg has no TLS block.
func TLSConfig(cfg *models.NATSSourceConfig) (*tls.Config, error) {
	if cfg == nil || cfg.TLS == nil {
		return nil, nil
	}

	certFile := certPath(cfg.CertDir, cfg.TLS.CertFile)
	keyFile := certPath(cfg.CertDir, cfg.TLS.KeyFile)
	caFile := certPath(cfg.CertDir, cfg.TLS.CAFile)

	if certFile == "" || keyFile == "" || caFile == "" {
		return nil, errTLSIncomplete
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, ErrCAParsingFailed
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ServerName:   cfg.ServerName,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// connectOptions derives nats options for credentials and TLS from cfg.
func connectOptions(cfg *models.NATSSourceConfig) ([]nats.Option, error) {
	opts := []nats.Option{nats.Name("hostmetrics")}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	tlsConf, err := TLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	if tlsConf != nil {
		opts = append(opts, nats.Secure(tlsConf))
	}

	return opts, nil
}

func certPath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}

	return filepath.Join(dir, path)
}
