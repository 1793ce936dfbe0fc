package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/solatis/dialkeeper/internal/types"
)

const cliRules = `<rewriting>
  <rule>
    <conditions><condition type="startsWith" param="00"/></conditions>
    <actions>
      <action type="replace" param="+"/>
      <action type="setHeader" param="X-Intl"><value>yes</value></action>
    </actions>
  </rule>
</rewriting>`

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "json")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestPickSecret(t *testing.T) {
	secrets := map[string][]byte{"bbbb": []byte("b"), "aaaa": []byte("a")}

	id, secret, err := pickSecret(secrets, "")
	require.NoError(t, err)
	assert.Equal(t, "aaaa", id)
	assert.Equal(t, []byte("a"), secret)

	id, _, err = pickSecret(secrets, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, "bbbb", id)

	_, _, err = pickSecret(secrets, "cccc")
	assert.Error(t, err)
	_, _, err = pickSecret(nil, "")
	assert.Error(t, err)
}

func TestWriteOutput(t *testing.T) {
	view := newResultView(types.Result{
		Number:  "+420",
		Headers: types.Headers{{Name: "X-A", Value: "1"}},
		Extras:  types.NewNode("extras", types.NewLeaf("tag", "vip")),
	})

	var y bytes.Buffer
	require.NoError(t, writeOutput(&y, "yaml", view))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(y.Bytes(), &fromYAML))
	assert.Equal(t, "+420", fromYAML["number"])
	assert.Equal(t, map[string]any{"tag": "vip"}, fromYAML["extras"])

	var j bytes.Buffer
	require.NoError(t, writeOutput(&j, "json", view))
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(j.Bytes(), &fromJSON))
	assert.Equal(t, map[string]any{"X-A": "1"}, fromJSON["headers"])
	assert.Equal(t, []any{}, fromJSON["matched_rules"])

	assert.Error(t, writeOutput(&j, "toml", view))
}

func TestCLI_RewriteWithRuleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.xml")
	require.NoError(t, os.WriteFile(path, []byte(cliRules), 0o644))

	out, err := execute(t, "rewrite", "--rules", path, "-o", "json", "00420123")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "+420123", got["number"])
	assert.Equal(t, map[string]any{"X-Intl": "yes"}, got["headers"])
}

func TestCLI_StoredRuleSets(t *testing.T) {
	dir := t.TempDir()
	dbFlag := "--db-url=sqlite://" + filepath.ToSlash(filepath.Join(dir, "cli.db"))
	rulesPath := filepath.Join(dir, "rules.xml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(cliRules), 0o644))

	_, err := execute(t, "rules", "export", dbFlag, "--account", "acct-1")
	assert.Error(t, err, "unmigrated database is rejected")

	out, err := execute(t, "migrate", dbFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "migration(s) applied")

	out, err = execute(t, "migrate", "status", dbFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "001_initial_schema.sql")
	assert.Contains(t, out, "applied")

	out, err = execute(t, "rules", "import", rulesPath, dbFlag, "--account", "acct-1")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 rules)")

	out, err = execute(t, "rules", "export", dbFlag, "--account", "acct-1")
	require.NoError(t, err)
	assert.Contains(t, out, `<action type="replace" param="+">`)

	out, err = execute(t, "rules", "history", dbFlag, "--account", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"), "header plus one revision")

	out, err = execute(t, "rewrite", dbFlag, "--account", "acct-1", "--rules", "", "-o", "yaml", "00420123")
	require.NoError(t, err)
	assert.Contains(t, out, "+420123")
	assert.True(t, strings.HasPrefix(out, "number:"), "yaml output starts with the number")
}

func TestCLI_RewriteExtra(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.xml")
	doc := `<rewriting>
  <rule>
    <conditions><condition type="numeric"/></conditions>
    <actions>
      <action type="dialOut"><sip><transport>tls</transport></sip></action>
    </actions>
  </rule>
</rewriting>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, err := execute(t, "rewrite", "--rules", path, "--extra", "sip.transport", "5551234")
	require.NoError(t, err)
	assert.Equal(t, "tls\n", out)

	_, err = execute(t, "rewrite", "--rules", path, "--extra", "sip.port", "5551234")
	assert.Error(t, err)

	_, err = execute(t, "rewrite", "--rules", path, "--extra", "sip.transport", "not-a-number")
	assert.Error(t, err, "no rule matched so there are no extras")
}
