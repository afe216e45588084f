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

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"

	srHttp "github.com/carverauto/hostmetrics/pkg/http"
	"github.com/carverauto/hostmetrics/pkg/models"
)

const hostIDsField = "hostids"

var errNoAggregator = errors.New("no metric aggregator configured")

func (s *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	srHttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHostMetrics answers 400 for unreadable input. Backend failures are reported
// in the body with 200 so the overlay renders placeholders instead of failing.
func (s *APIServer) handleHostMetrics(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	ids, err := decodeHostIDs(r)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Rejecting host metrics request")
		srHttp.WriteJSON(w, http.StatusBadRequest, models.MetricsResponse{Error: err.Error()})

		return
	}

	if s.aggregator == nil {
		srHttp.WriteJSON(w, http.StatusOK, models.MetricsResponse{Error: errNoAggregator.Error()})
		return
	}

	metrics, err := s.aggregator.GetMetrics(r.Context(), ids)
	if err != nil {
		srHttp.WriteJSON(w, http.StatusOK, models.MetricsResponse{Error: err.Error()})
		return
	}

	srHttp.WriteJSON(w, http.StatusOK, models.MetricsResponse{Metrics: metrics})
}

// decodeHostIDs accepts a JSON body {"hostids": [...]} or the form encoding
// hostids[0]=1&hostids[1]=2 (also hostids[]=1 and repeated hostids=1).
func decodeHostIDs(r *http.Request) ([]models.HostID, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return decodeFormHostIDs(r)
	default:
		return decodeJSONHostIDs(r.Body)
	}
}

func decodeJSONHostIDs(body io.Reader) ([]models.HostID, error) {
	var req models.MetricsRequest

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		if errors.Is(err, models.ErrInvalidHostIDs) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", errNoHostIDsField, err)
	}

	return req.HostIDs, nil
}

func decodeFormHostIDs(r *http.Request) ([]models.HostID, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidHostIDs, err)
	}

	type indexed struct {
		idx int
		id  models.HostID
	}

	var (
		ordered []indexed
		plain   []models.HostID
	)

	for key, values := range r.PostForm {
		switch {
		case key == hostIDsField || key == hostIDsField+"[]":
			for _, v := range values {
				plain = append(plain, models.HostID(v))
			}
		case strings.HasPrefix(key, hostIDsField+"[") && strings.HasSuffix(key, "]"):
			raw := key[len(hostIDsField)+1 : len(key)-1]

			idx, err := strconv.Atoi(raw)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("%w: %q", errInvalidFormIndex, key)
			}

			for _, v := range values {
				ordered = append(ordered, indexed{idx: idx, id: models.HostID(v)})
			}
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].idx < ordered[j].idx })

	ids := make([]models.HostID, 0, len(ordered)+len(plain))
	for _, o := range ordered {
		ids = append(ids, o.id)
	}

	return append(ids, plain...), nil
}
