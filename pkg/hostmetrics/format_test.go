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

package hostmetrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bytes float64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 B"},
		{name: "below one KB", bytes: 512, want: "512 B"},
		{name: "one KB", bytes: 1024, want: "1 KB"},
		{name: "one and a half KB", bytes: 1536, want: "1.5 KB"},
		{name: "rounded to two decimals", bytes: 1234567, want: "1.18 MB"},
		{name: "gigabytes", bytes: 8 * math.Pow(1024, 3), want: "8 GB"},
		{name: "one TB", bytes: math.Pow(1024, 4), want: "1 TB"},
		{name: "beyond TB stays in TB", bytes: math.Pow(1024, 5), want: "1024 TB"},
		{name: "fractional byte", bytes: 0.5, want: "0.5 B"},
		{name: "negative stays in bytes", bytes: -2048, want: "-2048 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 45.2, round2(45.2), 1e-9)
	assert.InDelta(t, 12.35, round2(12.345678), 1e-9)
	assert.InDelta(t, 66.67, round2(100-33.333), 1e-9)
}

func TestRound2HalfwayValues(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.01, round2(1.005), 1e-9)
	assert.InDelta(t, 2.68, round2(2.675), 1e-9)
	assert.InDelta(t, -1.01, round2(-1.005), 1e-9)
	assert.InDelta(t, 0.0, round2(0.004), 1e-9)
	assert.Equal(t, "1.01 KB", FormatBytes(1.005*1024))
}
