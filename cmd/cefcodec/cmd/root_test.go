package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/cefcodec/internal/config"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	var stdout, stderr bytes.Buffer
	root := NewRootCommand(BuildInfo{Version: "test", Commit: "abc", Date: "today"})
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestDecode(t *testing.T) {
	in := "CEF:0|Security|threatmanager|1.0|100|worm successfully stopped|10|src=10.0.0.1 dst=2.1.2.2 spt=1232\n" +
		"\n" +
		"CEF:0|V|P\n"

	res := execute(t, in, "decode", "--log-level", "error")
	require.NoError(t, res.err, res.stderr)

	lines := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Security", first["cef_vendor"])
	assert.Equal(t, "worm successfully stopped", first["cef_name"])
	assert.Equal(t, "10", first["cef_severity"])
	assert.Equal(t, map[string]any{"src": "10.0.0.1", "dst": "2.1.2.2", "spt": "1232"}, first["cef_ext"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "P", second["cef_product"])
	assert.NotContains(t, second, "cef_name")
}

func TestDecode_Unescape(t *testing.T) {
	in := `CEF:0|Acme\|Corp|P|1|2|N|3|msg=a\=b` + "\n"

	res := execute(t, in, "decode", "--log-level", "error")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"cef_vendor":"Acme\\|Corp"`)

	res = execute(t, in, "decode", "--unescape", "--log-level", "error")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"cef_vendor":"Acme|Corp"`)
	assert.Contains(t, res.stdout, `"msg":"a=b"`)
}

func TestDecode_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.cef")
	require.NoError(t, os.WriteFile(path, []byte("CEF:0|V|P|1|2|N|3|\n"), 0o600))

	res := execute(t, "", "decode", path, "--log-level", "error")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"cef_vendor":"V"`)

	res = execute(t, "", "decode", filepath.Join(t.TempDir(), "missing.cef"))
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "opening input")
}

func TestDecode_UnknownFormat(t *testing.T) {
	res := execute(t, "", "decode", "--format", "xml")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, `unknown output format "xml"`)
}

func TestEncode(t *testing.T) {
	in := `{"vendor":"Acme","sev":"9.0","src":"10.0.0.1","msg":"a=b"}` + "\n" +
		`{"msg":"line1` + `\n` + `line2"}` + "\n"

	res := execute(t, in, "encode",
		"--vendor", "%{vendor}",
		"--sev", "%{sev}",
		"--fields", "src, msg",
		"--log-level", "error",
	)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t,
		`CEF:0|Acme|Logstash|1.0|Logstash|Logstash|9|src=10.0.0.1 msg=a\=b`+"\n"+
			`CEF:0|Elasticsearch|Logstash|1.0|Logstash|Logstash|6|msg=line1\nline2`+"\n",
		res.stdout)
}

func TestEncode_BadLine(t *testing.T) {
	in := "not json\n" + `{"src":"h"}` + "\n"

	res := execute(t, in, "encode", "--fields", "src")
	require.NoError(t, res.err)
	assert.Equal(t, "CEF:0|Elasticsearch|Logstash|1.0|Logstash|Logstash|6|src=h\n", res.stdout)
	assert.Contains(t, res.stderr, "handling line")
	assert.Contains(t, res.stderr, "failed=1")

	res = execute(t, in, "encode", "--fields", "src", "--strict")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "line 1: line is not a JSON object")
	assert.Empty(t, res.stdout)
}

func TestConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cefcodec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("codec:\n  vendor: FromFile\n  product: FromFile\n  fields: [src]\n"), 0o600))
	t.Setenv("CEFCODEC_CODEC_PRODUCT", "FromEnv")

	res := execute(t, `{"src":"h"}`+"\n", "encode", "--config", path, "--name", "FromFlag", "--log-level", "error")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "CEF:0|FromFile|FromEnv|1.0|Logstash|FromFlag|6|src=h\n", res.stdout)
}

func TestInvalidConfig(t *testing.T) {
	res := execute(t, "", "decode", "--log-level", "loud")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "invalid configuration")
	assert.Contains(t, res.stderr, `log.level: unknown level "loud"`)

	res = execute(t, "", "encode", "--fields", "...")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "codec.fields")
}

func TestApplyFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addCodecFlags(flags)
	flags.Bool("unescape", false, "")
	require.NoError(t, flags.Parse([]string{"--device-version", "2.0", "--fields", "a;b", "--unescape"}))

	cfg := config.Default()
	applyFlags(flags, cfg)

	assert.Equal(t, "2.0", cfg.Codec.Version)
	assert.Equal(t, []string{"a", "b"}, cfg.Codec.Fields)
	assert.True(t, cfg.Codec.Unescape)
	assert.Equal(t, "Elasticsearch", cfg.Codec.Vendor, "unset flags leave the config alone")
	assert.Equal(t, ":8080", cfg.Server.Listen, "undefined flags are ignored")
}

func TestVersion(t *testing.T) {
	res := execute(t, "", "--version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "test (commit: abc, built: today)")
}
