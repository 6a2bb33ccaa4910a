package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/mete"
)

const xmlFile = `<?xml version="1.0"?>
<METE_parameters>
  <analysis scriptname="fit_psi" interactive="F">
    <run name="bcis">
      <param name="S" value="5"/>
      <param name="N" value="20"/>
      <param name="E" value="100"/>
    </run>
    <run>
      <param name="S" value="3"/>
      <param name="N" value="10"/>
      <param name="E" value="50.5"/>
    </run>
  </analysis>
  <analysis scriptname="other" interactive="T">
    <run name="x"><param name="S" value="1"/></run>
  </analysis>
</METE_parameters>
`

const tomlFile = `
[[analysis]]
scriptname = "fit_psi"
interactive = true

[[analysis.run]]
name = "bcis"
[analysis.run.params]
S = 5
N = 20
E = 100.0

[[analysis.run]]
[analysis.run.params]
S = 3
N = 10
E = 50.5
`

const yamlFile = `
analysis:
  - scriptname: fit_psi
    interactive: F
    run:
      - name: bcis
        params: {S: 5, N: 20, E: 100}
      - params: {S: 3, N: 10, E: 50.5}
`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		content     string
		interactive bool
	}{
		{"xml", "parameters.xml", xmlFile, false},
		{"toml", "parameters.toml", tomlFile, true},
		{"yaml", "parameters.yaml", yamlFile, false},
		{"yml", "parameters.yml", yamlFile, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load(write(t, tt.file, tt.content), "fit_psi", CommunityAsk)
			require.NoError(t, err)

			assert.Equal(t, "fit_psi", p.Script)
			assert.Equal(t, tt.interactive, p.Interactive)
			require.Len(t, p.Runs, 2)
			assert.Equal(t, "bcis", p.Runs[0].Name)
			assert.Equal(t, "autoname0", p.Runs[1].Name)

			c, err := p.Runs[0].Community()
			require.NoError(t, err)
			assert.Equal(t, mete.Community{S: 5, N: 20, E: 100}, c)

			c, err = p.Runs[1].Community()
			require.NoError(t, err)
			assert.Equal(t, mete.Community{S: 3, N: 10, E: 50.5}, c)

			r, ok := p.Run("bcis")
			assert.True(t, ok)
			assert.Equal(t, "bcis", r.Name)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "nope.xml"), "fit_psi", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "err = %v", err)

	_, err = Load(write(t, "p.json", "{}"), "fit_psi", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "err = %v", err)

	_, err = Load(write(t, "p.xml", "<broken"), "fit_psi", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "err = %v", err)

	_, err = Load(write(t, "p.xml", "<METE_parameters></METE_parameters>"), "fit_psi", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "err = %v", err)

	_, err = Load(write(t, "p.toml", "analysis = 3"), "fit_psi", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "err = %v", err)
}

func TestLoadParamsMissing(t *testing.T) {
	path := write(t, "parameters.xml", xmlFile)

	// "other" defines only S.
	_, err := Load(path, "other", CommunityAsk)
	assert.True(t, errors.Is(err, errors.ErrCodeParamsMissing), "err = %v", err)
	assert.Contains(t, errors.UserMessage(err), "x [E, N]")

	// No runs recorded for the script.
	_, err = Load(path, "unknown", CommunityAsk)
	assert.True(t, errors.Is(err, errors.ErrCodeParamsMissing), "err = %v", err)

	// Without an ask list an unknown script has simply no runs.
	p, err := Load(path, "unknown", nil)
	require.NoError(t, err)
	assert.Empty(t, p.Runs)
	assert.False(t, p.Interactive)
}

func TestMissing(t *testing.T) {
	p := &Parameters{Runs: []Run{
		{Name: "a", Values: map[string]string{"S": "3", "N": "10"}},
		{Name: "b", Values: map[string]string{"S": "3", "N": "10", "E": "50"}},
	}}

	assert.Equal(t, map[string][]string{"a": {"E"}}, p.Missing(CommunityAsk))
	assert.False(t, p.Fulfilled(CommunityAsk))
	assert.True(t, p.Fulfilled(map[string]string{"S": ""}))
	assert.Nil(t, p.Missing(nil))

	empty := &Parameters{}
	assert.Equal(t, map[string][]string{"": {"S"}}, empty.Missing(map[string]string{"S": ""}))
}

func TestInteractive(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{"F", false},
		{"False", false},
		{"f", false},
		{"false", false},
		{"T", true},
		{"yes", true},
		{true, true},
		{false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, interactive(tt.in), "interactive(%v)", tt.in)
	}
}

func TestRunValues(t *testing.T) {
	r := Run{Name: "r", Values: map[string]string{"S": "20.0", "E": "abc", "N": "2.5"}}

	s, err := r.Int("S")
	require.NoError(t, err)
	assert.Equal(t, 20, s)

	_, err = r.Int("N")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = r.Float("E")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = r.Float("missing")
	assert.True(t, errors.Is(err, errors.ErrCodeParamsMissing))

	_, err = r.Community()
	assert.Error(t, err)
}
