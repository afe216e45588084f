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

package overlay

import "errors"

var (
	// ErrPassInFlight is returned when an injection pass is already running.
	ErrPassInFlight = errors.New("injection pass already in flight")
	// ErrRemote wraps the message of an {"error": ...} response.
	ErrRemote = errors.New("metrics endpoint reported an error")

	errTableMissing  = errors.New("host table not present")
	errNoHostLink    = errors.New("row has no host link")
	errBadHostLink   = errors.New("host link metadata is not valid JSON")
	errNoHostID      = errors.New("host link metadata has no hostid")
	errFetchStatus   = errors.New("unexpected metrics response status")
	errMissingURL    = errors.New("aggregator url is required")
	errNilAggregator = errors.New("local fetcher needs an aggregator")
)
