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
	"strconv"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

const bytesPerUnit = 1024

// FormatBytes renders a byte count on a 1024 ladder capped at TB, e.g. "1.5 KB".
func FormatBytes(bytes float64) string {
	if bytes == 0 {
		return "0 B"
	}

	value := bytes
	power := 0

	for value >= bytesPerUnit && power < len(byteUnits)-1 {
		value /= bytesPerUnit
		power++
	}

	return strconv.FormatFloat(round2(value), 'f', -1, 64) + " " + byteUnits[power]
}

// round2 rounds half away from zero after dropping binary noise past nine
// decimals of the scaled value, so 1.005 becomes 1.01.
func round2(v float64) float64 {
	scaled, err := strconv.ParseFloat(strconv.FormatFloat(v*100, 'f', 9, 64), 64)
	if err != nil {
		scaled = v * 100
	}

	return math.Round(scaled) / 100
}
