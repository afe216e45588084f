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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"serve", "render", "publish", "config"})
}

func TestConfigCommandPrintsSanitizedConfig(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := filepath.Join(t.TempDir(), "hostmetrics.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen_addr": ":8090",
		"api_key": "very-secret",
		"source": {"type": "zabbix", "zabbix": {"url": "http://zabbix/api_jsonrpc.php", "api_token": "tok-123"}}
	}`), 0o600))

	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--config", path})

	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), `"listen_addr": ":8090"`)
	assert.NotContains(t, out.String(), "very-secret")
	assert.NotContains(t, out.String(), "tok-123")
}

func TestRenderCommandPassesThroughNonHostPages(t *testing.T) {
	page := `<html><body><p>Dashboard</p></body></html>`

	var out bytes.Buffer

	root := newRootCmd()
	root.SetIn(strings.NewReader(page))
	root.SetOut(&out)
	root.SetArgs([]string{"render", "--aggregator-url", "http://127.0.0.1:1/api/v1/hostmetrics"})

	require.NoError(t, root.Execute())
	assert.Equal(t, page, out.String())
}

func TestPublishCommandRequiresHostID(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"publish"})

	assert.Error(t, root.Execute())
}
