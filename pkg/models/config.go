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

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/carverauto/hostmetrics/pkg/logger"
)

// Duration accepts either a Go duration string or a number of nanoseconds in JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// SourceType selects the telemetry backend.
type SourceType string

const (
	SourceZabbix SourceType = "zabbix"
	SourceCNPG   SourceType = "cnpg"
	SourceNATS   SourceType = "nats"
	SourceLocal  SourceType = "local"
)

// Config is the hostmetrics service configuration.
type Config struct {
	ListenAddr string          `json:"listen_addr"`
	APIKey     string          `json:"api_key,omitempty" sensitive:"true"`
	CORS       CORSConfig      `json:"cors"`
	RateLimit  RateLimitConfig `json:"rate_limit"`
	Source     SourceConfig    `json:"source"`
	Overlay    OverlayConfig   `json:"overlay"`
	Proxy      ProxyConfig     `json:"proxy"`
	Logging    *logger.Config  `json:"logging,omitempty"`
}

type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}

type RateLimitConfig struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// SourceConfig holds one block per backend; only the one named by Type is used.
type SourceConfig struct {
	Type    SourceType          `json:"type"`
	Timeout Duration            `json:"timeout,omitempty"`
	Zabbix  *ZabbixSourceConfig `json:"zabbix,omitempty"`
	CNPG    *CNPGDatabase       `json:"cnpg,omitempty"`
	NATS    *NATSSourceConfig   `json:"nats,omitempty"`
	Local   *LocalSourceConfig  `json:"local,omitempty"`
}

type ZabbixSourceConfig struct {
	URL      string `json:"url"`
	APIToken string `json:"api_token" sensitive:"true"`

	// LegacyAuth sends the token in the request "auth" member for frontends before 6.4.
	LegacyAuth bool `json:"legacy_auth,omitempty"`
}

// CNPGDatabase describes the Postgres cluster holding latest item values.
type CNPGDatabase struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password,omitempty" sensitive:"true"`
	ApplicationName    string            `json:"application_name,omitempty"`
	SSLMode            string            `json:"ssl_mode,omitempty"`
	CertDir            string            `json:"cert_dir,omitempty"`
	TLS                *TLSConfig        `json:"tls,omitempty"`
	MaxConnections     int32             `json:"max_connections,omitempty"`
	MinConnections     int32             `json:"min_connections,omitempty"`
	MaxConnLifetime    Duration          `json:"max_conn_lifetime,omitempty"`
	HealthCheckPeriod  Duration          `json:"health_check_period,omitempty"`
	StatementTimeout   Duration          `json:"statement_timeout,omitempty"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty"`
}

type TLSConfig struct {
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	CAFile   string `json:"ca_file"`
}

type NATSSourceConfig struct {
	URL        string     `json:"url"`
	Bucket     string     `json:"bucket"`
	CredsFile  string     `json:"creds_file,omitempty"`
	ServerName string     `json:"server_name,omitempty"`
	CertDir    string     `json:"cert_dir,omitempty"`
	TLS        *TLSConfig `json:"tls,omitempty"`
}

// LocalSourceConfig reports the machine running the service as HostID.
type LocalSourceConfig struct {
	HostID     HostID `json:"host_id"`
	MountPoint string `json:"mount_point,omitempty"`
}

// OverlayConfig tunes how the overlay finds and augments the host table.
type OverlayConfig struct {
	AggregatorURL     string   `json:"aggregator_url,omitempty"`
	AggregatorAPIKey  string   `json:"aggregator_api_key,omitempty" sensitive:"true"`
	RequestTimeout    Duration `json:"request_timeout,omitempty"`
	PollInterval      Duration `json:"poll_interval,omitempty"`
	SettleDelay       Duration `json:"settle_delay,omitempty"`
	ContainerSelector string   `json:"container_selector,omitempty"`
	TableSelector     string   `json:"table_selector,omitempty"`
	AnchorHeader      string   `json:"anchor_header,omitempty"`
	TagCellSelector   string   `json:"tag_cell_selector,omitempty"`
	TagCellTexts      []string `json:"tag_cell_texts,omitempty"`
	HostLinkSelector  string   `json:"host_link_selector,omitempty"`
	HostLinkAttribute string   `json:"host_link_attribute,omitempty"`
}

// ProxyConfig enables the augmenting reverse proxy when ListenAddr is set.
type ProxyConfig struct {
	ListenAddr string   `json:"listen_addr,omitempty"`
	Upstream   string   `json:"upstream,omitempty"`
	Actions    []string `json:"actions,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errListenAddrMissing
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return errRateLimitInvalid
	}

	if c.Proxy.ListenAddr != "" && c.Proxy.Upstream == "" {
		return errProxyUpstream
	}

	return c.Source.Validate()
}

func (s *SourceConfig) Validate() error {
	switch s.Type {
	case SourceZabbix:
		if s.Zabbix == nil || s.Zabbix.URL == "" {
			return fmt.Errorf("%w: zabbix.url", errSourceIncomplete)
		}
	case SourceCNPG:
		if s.CNPG == nil || s.CNPG.Host == "" || s.CNPG.Database == "" {
			return fmt.Errorf("%w: cnpg.host and cnpg.database", errSourceIncomplete)
		}
	case SourceNATS:
		if s.NATS == nil || s.NATS.URL == "" || s.NATS.Bucket == "" {
			return fmt.Errorf("%w: nats.url and nats.bucket", errSourceIncomplete)
		}
	case SourceLocal:
		if s.Local == nil || s.Local.HostID == "" {
			return fmt.Errorf("%w: local.host_id", errSourceIncomplete)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownSource, s.Type)
	}

	return nil
}
