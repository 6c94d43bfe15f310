package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestResolveCommand_TextGolden(t *testing.T) {
	out, err := runCommand(t, "resolve", "--rulepack", "testdata/rulepack")

	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "resolve_text", []byte(out))
}

func TestResolveCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "resolve", "--rulepack", "testdata/rulepack", "--format", "json")

	require.NoError(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   []resolvedRuleView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(10), resp.Data[0].EntryID)
	assert.Equal(t, "(internal.amount == mis.amount) and (internal.rrn == mis.rrn)", resp.Data[0].Resolved)
	assert.Empty(t, resp.Data[0].Error)
	assert.Equal(t, "(internal.amount == mis.amount)", resp.Data[1].Resolved)
}

func TestResolveCommand_ReportsPerRuleErrors(t *testing.T) {
	dir := writeRulepack(t, `
rulepack: {
	fragments: [{id: 1, expression: "internal.a == mis.a"}]
	states: [{id: 1, name: "Reconciled", rank: 100}]
	mappings: [
		{id: 10, expression: "1", stateId: 1, seq: 1},
		{id: 20, expression: "1 and 99", stateId: 1, seq: 2},
	]
}
`)

	out, err := runCommand(t, "resolve", "--rulepack", dir, "--format", "json")

	require.NoError(t, err)

	var resp struct {
		Data []resolvedRuleView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Empty(t, resp.Data[0].Error)
	assert.Contains(t, resp.Data[1].Error, "UNKNOWN_RULE_REFERENCE")
	assert.Empty(t, resp.Data[1].Resolved)
}

func TestResolveCommand_RequiresASource(t *testing.T) {
	_, err := runCommand(t, "resolve")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	_, err := runCommand(t, "resolve", "--rulepack", "testdata/rulepack", "--format", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
