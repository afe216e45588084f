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

package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/hostmetrics/pkg/logger"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// HTTPServer names a handler bound to an address.
type HTTPServer struct {
	Name    string
	Addr    string
	Handler http.Handler
}

// RunHTTPServers serves every entry until ctx is cancelled or one of them fails,
// then shuts all of them down gracefully.
func RunHTTPServers(ctx context.Context, log logger.Logger, servers ...HTTPServer) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, s := range servers {
		srv := &http.Server{
			Addr:         s.Addr,
			Handler:      s.Handler,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		}
		name := s.Name

		g.Go(func() error {
			log.Info().Str("server", name).Str("listen_addr", srv.Addr).Msg("Starting HTTP server")

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()

			log.Info().Str("server", name).Msg("Shutting down HTTP server")

			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
