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

package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/hostmetrics/pkg/models"
)

func tlsPaths() *models.TLSConfig {
	return &models.TLSConfig{
		CertFile: "client.crt",
		KeyFile:  "client.key",
		CAFile:   "ca.crt",
	}
}

func TestBuildCNPGConnURLDefaults(t *testing.T) {
	t.Parallel()

	u, err := buildCNPGConnURL(&models.CNPGDatabase{
		Host:     "cnpg-rw",
		Database: "zabbix",
		Username: "reader",
	})
	require.NoError(t, err)

	assert.Equal(t, "cnpg-rw:5432", u.Host)
	assert.Equal(t, "/zabbix", u.Path)
	assert.Equal(t, "reader", u.User.Username())
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "hostmetrics", u.Query().Get("application_name"))
}

func TestBuildCNPGConnURLDefaultsVerifyFullWithTLS(t *testing.T) {
	t.Parallel()

	u, err := buildCNPGConnURL(&models.CNPGDatabase{
		Host:     "cnpg-rw",
		Port:     6432,
		Database: "zabbix",
		TLS:      tlsPaths(),
	})
	require.NoError(t, err)

	assert.Equal(t, "verify-full", u.Query().Get("sslmode"))
	assert.Equal(t, "cnpg-rw:6432", u.Host)
}

func TestBuildCNPGConnURLRejectsTLSWithSSLModeDisable(t *testing.T) {
	t.Parallel()

	_, err := buildCNPGConnURL(&models.CNPGDatabase{
		Host:     "cnpg-rw",
		Database: "zabbix",
		SSLMode:  "disable",
		TLS:      tlsPaths(),
	})
	assert.ErrorIs(t, err, ErrCNPGTLSDisabled)
}

func TestBuildCNPGConnURLResolvesCertDir(t *testing.T) {
	t.Parallel()

	u, err := buildCNPGConnURL(&models.CNPGDatabase{
		Host:     "cnpg-rw",
		Database: "zabbix",
		CertDir:  "/etc/hostmetrics/cnpg",
		TLS: &models.TLSConfig{
			CertFile: "client.crt",
			KeyFile:  "client.key",
			CAFile:   "/opt/ca.crt",
		},
	})
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "/etc/hostmetrics/cnpg/client.crt", q.Get("sslcert"))
	assert.Equal(t, "/etc/hostmetrics/cnpg/client.key", q.Get("sslkey"))
	assert.Equal(t, "/opt/ca.crt", q.Get("sslrootcert"))
}

func TestResolveCNPGSSLModeUsesRuntimeParamsFallback(t *testing.T) {
	t.Parallel()

	got, err := resolveCNPGSSLMode(&models.CNPGDatabase{
		ExtraRuntimeParams: map[string]string{"sslmode": "Verify-CA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "verify-ca", got)
}

func TestBuildCNPGTLSConfigRequiresAllFiles(t *testing.T) {
	t.Parallel()

	cfg, err := buildCNPGTLSConfig(&models.CNPGDatabase{Host: "cnpg-rw"})
	require.NoError(t, err)
	assert.Nil(t, cfg)

	_, err = buildCNPGTLSConfig(&models.CNPGDatabase{
		Host: "cnpg-rw",
		TLS:  &models.TLSConfig{CertFile: "client.crt"},
	})
	assert.ErrorIs(t, err, errCNPGTLSIncomplete)
}

func TestNewCNPGPoolRequiresConfig(t *testing.T) {
	t.Parallel()

	pool, err := NewCNPGPool(context.Background(), nil, nil)
	assert.ErrorIs(t, err, errCNPGConfigMissing)
	assert.Nil(t, pool)
}
