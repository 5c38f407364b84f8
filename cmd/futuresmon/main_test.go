package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-monitor/internal/config"
	"futures-monitor/internal/core"
)

func writeConfig(t *testing.T, dir, restURL string) string {
	t.Helper()
	body := "refresh:\n  interval_sec: 30\n" +
		"display:\n  locale: en\n  timezone: UTC\n" +
		"log:\n  file: " + filepath.Join(dir, "futuresmon.log") + "\n"
	if restURL != "" {
		body = "exchange:\n  rest_base_url: " + restURL + "\n" + body
	}
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvAPISecret, "")
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })
}

func TestLoadConfigAppliesChangedFlags(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "")
	opts := &rootOptions{}
	root := newRootCmd(opts)

	require.NoError(t, root.ParseFlags([]string{
		"--config", path,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--interval", "60",
		"--mode", "PLAIN",
		"--listen", "127.0.0.1:9100",
	}))
	cfg, err := loadConfig(root, opts)
	require.NoError(t, err)

	assert.Equal(t, int64(60), cfg.Refresh.IntervalSec)
	assert.Equal(t, config.DisplayPlain, cfg.Display.Mode)
	assert.Equal(t, "127.0.0.1:9100", cfg.HTTP.Listen)
	assert.Equal(t, "en", cfg.Display.Locale)
	assert.Equal(t, config.DefaultPageSize, cfg.Refresh.PageSize)
}

func TestLoadConfigRejectsOutOfRangeInterval(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	opts := &rootOptions{}
	root := newRootCmd(opts)

	require.NoError(t, root.ParseFlags([]string{"--config", writeConfig(t, dir, ""), "--interval", "5"}))
	_, err := loadConfig(root, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval_sec")
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.yaml")

	opts := &rootOptions{}
	root := newRootCmd(opts)
	opts.configPath = missing
	opts.envFile = filepath.Join(dir, ".env")
	cfg, err := loadConfig(root, opts)
	require.NoError(t, err, "default path may be absent")
	assert.Equal(t, int64(config.DefaultRefreshIntervalSec), cfg.Refresh.IntervalSec)

	opts = &rootOptions{}
	root = newRootCmd(opts)
	require.NoError(t, root.ParseFlags([]string{"--config", missing}))
	_, err = loadConfig(root, opts)
	assert.Error(t, err, "an explicit --config must exist")
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv(config.EnvAPIKey))
	require.NoError(t, os.Unsetenv(config.EnvAPISecret))
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("BINANCE_API_KEY=key-from-file\nBINANCE_API_SECRET=secret-from-file\n"), 0o600))

	opts := &rootOptions{}
	root := newRootCmd(opts)
	opts.configPath = filepath.Join(dir, "absent.yaml")
	opts.envFile = envPath
	cfg, err := loadConfig(root, opts)
	require.NoError(t, err)
	assert.Equal(t, "key-from-file", cfg.Exchange.APIKey)
	assert.Equal(t, "secret-from-file", cfg.Exchange.APISecret)
	assert.True(t, cfg.Exchange.CredentialsReady())
}

func TestFillCredentials(t *testing.T) {
	var prompts []string
	read := func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "  value-" + prompt[:3] + "  ", nil
	}

	ex := config.ExchangeConfig{KeyType: config.KeyTypeHMAC}
	require.NoError(t, fillCredentials(&ex, read))
	assert.Equal(t, []string{"API Key: ", "Secret Key: "}, prompts)
	assert.Equal(t, "value-API", ex.APIKey)
	assert.Equal(t, "value-Sec", ex.APISecret)

	prompts = nil
	ed := config.ExchangeConfig{KeyType: config.KeyTypeEd25519, Ed25519KeyPath: "key.pem"}
	require.NoError(t, fillCredentials(&ed, read))
	assert.Equal(t, []string{"API Key: "}, prompts, "ed25519 keys sign without a secret")

	prompts = nil
	done := config.ExchangeConfig{APIKey: "k", APISecret: "s", KeyType: config.KeyTypeHMAC}
	require.NoError(t, fillCredentials(&done, read))
	assert.Empty(t, prompts)

	failing := func(string) (string, error) { return "", io.ErrUnexpectedEOF }
	err := fillCredentials(&config.ExchangeConfig{}, failing)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestUseDashboard(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, useDashboard(config.DisplayTUI, &buf))
	assert.False(t, useDashboard(config.DisplayPlain, &buf))
	assert.False(t, useDashboard(config.DisplayAuto, &buf), "a buffer is not a terminal")
}

func fakeExchange(t *testing.T, accountStatus int, account string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("signature") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/fapi/v2/account":
			w.WriteHeader(accountStatus)
			_, _ = w.Write([]byte(account))
		case "/fapi/v2/positionRisk":
			_, _ = w.Write([]byte(`[{"symbol":"BTCUSDT","positionAmt":"0.010","entryPrice":"30000","markPrice":"31000","unRealizedProfit":"10","leverage":"20"}]`))
		case "/fapi/v1/openOrders", "/fapi/v1/userTrades":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&rootOptions{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

const okAccount = `{"totalWalletBalance":"100.50","totalUnrealizedProfit":"-2.30","totalMarginBalance":"98.20"}`

func TestSnapshotCommandPrintsTables(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvAPIKey, "test-key")
	t.Setenv(config.EnvAPISecret, "test-secret")
	dir := t.TempDir()
	srv := fakeExchange(t, http.StatusOK, okAccount)

	out, err := execute(t, "snapshot", "--config", writeConfig(t, dir, srv.URL), "--env-file", filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Contains(t, out, "100.50 USDT")
	assert.Contains(t, out, "-2.30 USDT")
	assert.Contains(t, out, "BTCUSDT")
}

func TestSnapshotCommandJSON(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvAPIKey, "test-key")
	t.Setenv(config.EnvAPISecret, "test-secret")
	dir := t.TempDir()
	srv := fakeExchange(t, http.StatusOK, okAccount)

	out, err := execute(t, "snapshot", "--json", "--config", writeConfig(t, dir, srv.URL), "--env-file", filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
	assert.Contains(t, out, `"positions"`)
	assert.Contains(t, out, `"refreshed_at"`)
}

func TestSnapshotCommandFailsOnRejectedAccount(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvAPIKey, "test-key")
	t.Setenv(config.EnvAPISecret, "test-secret")
	dir := t.TempDir()
	srv := fakeExchange(t, http.StatusUnauthorized, `{"code":-2015,"msg":"Invalid API-key, IP, or permissions for action."}`)

	out, err := execute(t, "snapshot", "--config", writeConfig(t, dir, srv.URL), "--env-file", filepath.Join(dir, ".env"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAccountRejected))
	assert.Contains(t, out, "Invalid API-key, IP, or permissions for action.")
}

func TestCheckCommand(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvAPIKey, "test-key")
	t.Setenv(config.EnvAPISecret, "test-secret")
	dir := t.TempDir()

	srv := fakeExchange(t, http.StatusOK, okAccount)
	out, err := execute(t, "check", "--config", writeConfig(t, dir, srv.URL), "--env-file", filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok ")
	assert.Contains(t, out, "98.20 USDT")
	assert.NotContains(t, out, "test-secret")

	rejected := fakeExchange(t, http.StatusUnauthorized, `{"code":-2015,"msg":"Invalid API-key, IP, or permissions for action."}`)
	_, err = execute(t, "check", "--config", writeConfig(t, dir, rejected.URL), "--env-file", filepath.Join(dir, ".env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	assert.Contains(t, err.Error(), "IP whitelist")
}

func TestSnapshotCommandWithoutCredentials(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input, err := os.CreateTemp(dir, "stdin")
	require.NoError(t, err)
	defer input.Close()
	prev := credentialInput
	credentialInput = input
	t.Cleanup(func() { credentialInput = prev })

	_, err = execute(t, "snapshot", "--config", writeConfig(t, dir, ""), "--env-file", filepath.Join(dir, ".env"))
	assert.ErrorIs(t, err, core.ErrMissingCredentials)
}
