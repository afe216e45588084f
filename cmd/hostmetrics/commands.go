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

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/carverauto/hostmetrics/cmd/hostmetrics/app"
	"github.com/carverauto/hostmetrics/pkg/config"
	"github.com/carverauto/hostmetrics/pkg/hostmetrics"
	"github.com/carverauto/hostmetrics/pkg/kv"
	"github.com/carverauto/hostmetrics/pkg/lifecycle"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
	"github.com/carverauto/hostmetrics/pkg/overlay"
	"github.com/carverauto/hostmetrics/pkg/sysmon"
	"github.com/carverauto/hostmetrics/pkg/version"
)

const defaultConfigPath = "/etc/hostmetrics/hostmetrics.json"

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:          "hostmetrics",
		Short:        "Host resource columns for the monitoring frontend's host list",
		Version:      version.GetFullVersion(),
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return lifecycle.InitializeLogger(&logger.Config{Level: "warn", Debug: debug, Output: "stderr"})
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level to stderr until the config is loaded")

	root.AddCommand(newServeCmd(), newRenderCmd(), newPublishCmd(), newConfigCmd())

	return root
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metrics API and the augmenting proxy",
		Long: `Serve POST /api/v1/hostmetrics backed by the configured sample source.

When proxy.listen_addr is set, a reverse proxy in front of the frontend adds
the CPU, memory and disk columns to host-view pages.

Examples:
  hostmetrics serve --config /etc/hostmetrics/hostmetrics.json
  CONFIG_SOURCE=env HOSTMETRICS_SOURCE_TYPE=local hostmetrics serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), app.Options{ConfigPath: configPath})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")

	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		configPath    string
		aggregatorURL string
		apiKey        string
		pageURL       string
		timeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Add metric columns to a saved host-view page",
		Long: `Read a host-view page from a file or stdin and write it to stdout with
the metric columns added.

Metrics come from --aggregator-url when given, otherwise from the source in
--config.

Examples:
  hostmetrics render hosts.html --aggregator-url http://localhost:8090/api/v1/hostmetrics
  curl -s "$ZBX/zabbix.php?action=host.view" | hostmetrics render --config hostmetrics.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()

			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()

				in = f
			}

			log, err := lifecycle.CreateComponentLogger("render", &logger.Config{Level: "warn", Output: "stderr"})
			if err != nil {
				return err
			}

			overlayCfg := models.OverlayConfig{
				AggregatorURL:    aggregatorURL,
				AggregatorAPIKey: apiKey,
				RequestTimeout:   models.Duration(timeout),
			}

			var agg overlay.Responder

			if aggregatorURL == "" {
				cfg, err := app.LoadConfig(cmd.Context(), configPath)
				if err != nil {
					return err
				}

				source, closeSource, err := app.NewSampleSource(cmd.Context(), cfg.Source, log)
				if err != nil {
					return err
				}
				defer closeSource()

				agg = hostmetrics.NewAggregator(source, log)
				overlayCfg = cfg.Overlay
				overlayCfg.AggregatorURL = ""
			}

			fetcher, err := app.NewFetcher(overlayCfg, agg)
			if err != nil {
				return err
			}

			_, err = app.Render(cmd.Context(), in, cmd.OutOrStdout(), app.RenderOptions{
				Fetcher: fetcher,
				Overlay: overlayCfg,
				PageURL: pageURL,
				Log:     log,
			})

			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")
	cmd.Flags().StringVar(&aggregatorURL, "aggregator-url", "", "Metrics endpoint to query instead of a local source")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "X-API-Key sent to --aggregator-url")
	cmd.Flags().StringVar(&pageURL, "url", "", "URL the page was served from")
	cmd.Flags().DurationVar(&timeout, "timeout", overlay.DefaultRequestTimeout, "Metrics request timeout")

	return cmd
}

func newPublishCmd() *cobra.Command {
	var (
		natsURL  string
		bucket   string
		creds    string
		hostID   string
		mount    string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish this machine's samples to a NATS KeyValue bucket",
		Long: `Sample CPU, memory and disk usage of the local machine and store them
under hosts.<host-id> in a JetStream KeyValue bucket, where a server
running with source.type=nats picks them up.

Examples:
  hostmetrics publish --nats nats://nats:4222 --bucket hostmetrics --host-id 10084`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := lifecycle.CreateComponentLogger("publish", logger.DefaultConfig())
			if err != nil {
				return err
			}

			collector, err := sysmon.NewSource(&models.LocalSourceConfig{HostID: models.HostID(hostID), MountPoint: mount}, log)
			if err != nil {
				return err
			}

			store, err := kv.NewNatsStore(cmd.Context(), &models.NATSSourceConfig{URL: natsURL, Bucket: bucket, CredsFile: creds})
			if err != nil {
				return err
			}
			defer store.Close()

			log.Info().Str("host_id", hostID).Str("bucket", bucket).Dur("interval", interval).Msg("Publishing host samples")

			return app.Publish(cmd.Context(), collector, store, interval, log)
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats", "nats://127.0.0.1:4222", "NATS server URL")
	cmd.Flags().StringVar(&bucket, "bucket", "hostmetrics", "KeyValue bucket")
	cmd.Flags().StringVar(&creds, "creds", "", "NATS user credentials file")
	cmd.Flags().StringVar(&hostID, "host-id", "", "Host id to publish under")
	cmd.Flags().StringVar(&mount, "mount", "/", "Filesystem reported as disk usage")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Publish interval")
	_ = cmd.MarkFlagRequired("host-id")

	return cmd
}

func newConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the configuration and print it without secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}

			out, err := config.SanitizedJSON(cfg)
			if err != nil {
				return err
			}

			return writeLine(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")

	return cmd
}

func writeLine(w io.Writer, b []byte) error {
	_, err := fmt.Fprintf(w, "%s\n", b)
	return err
}
