package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeRules(t, `
patterns:
  - type: kill
    pattern: '(?P<ts>\S+) .*KILL: (?P<killer>\S+) -> (?P<victim>\S+)'
  - type: DEATH
    pattern: '(?P<ts>\S+) .*DEATH: (?P<victim>\S+) by (?P<killer>\S+)'
rewards:
  KILL: 250
  dogtag: 10
headshot_keywords: ["HEADSHOT"]
`)

	rs, err := Load(path)
	require.NoError(t, err)

	require.Len(t, rs.Rules, 2)
	assert.Equal(t, "KILL", rs.Rules[0].Type)
	assert.Equal(t, "DEATH", rs.Rules[1].Type)

	assert.Equal(t, int64(250), rs.Rewards["KILL"])
	assert.Equal(t, int64(10), rs.Rewards["DOGTAG"])
	assert.Equal(t, []string{"HEADSHOT"}, rs.HeadshotKeywords)
}

func TestLoadPreservesDeclarationOrder(t *testing.T) {
	path := writeRules(t, `
patterns:
  - type: EXTRACT
    pattern: 'EXTRACT: (?P<name>\S+)'
  - type: SURVIVE
    pattern: 'SURVIVE: (?P<name>\S+)'
  - type: DOGTAG
    pattern: 'DOGTAG: (?P<name>\S+)'
`)

	rs, err := Load(path)
	require.NoError(t, err)

	var order []string
	for _, r := range rs.Rules {
		order = append(order, r.Type)
	}
	assert.Equal(t, []string{"EXTRACT", "SURVIVE", "DOGTAG"}, order)
}

func TestLoadDefaultHeadshotKeywords(t *testing.T) {
	path := writeRules(t, `
patterns:
  - type: KILL
    pattern: 'KILL: (?P<killer>\S+)'
`)

	rs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultHeadshotKeywords, rs.HeadshotKeywords)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no patterns", `rewards: {KILL: 1}`},
		{"empty type", "patterns:\n  - type: ''\n    pattern: 'x'"},
		{"empty pattern", "patterns:\n  - type: KILL\n    pattern: ''"},
		{"bad regexp", "patterns:\n  - type: KILL\n    pattern: '(?P<'"},
		{"duplicate type", "patterns:\n  - type: KILL\n    pattern: 'a'\n  - type: kill\n    pattern: 'b'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeRules(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
