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

import "errors"

var (
	ErrInvalidHostIDs    = errors.New("invalid hostids")
	errInvalidDuration   = errors.New("invalid duration")
	errListenAddrMissing = errors.New("listen_addr is required")
	errUnknownSource     = errors.New("unknown source type")
	errSourceIncomplete  = errors.New("source configuration incomplete")
	errProxyUpstream     = errors.New("proxy.upstream is required when proxy.listen_addr is set")
	errRateLimitInvalid  = errors.New("rate_limit.requests_per_second must be positive when enabled")
	errNotStruct         = errors.New("input must be a struct or pointer to struct")
)
