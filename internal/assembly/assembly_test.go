package assembly

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academic-agent/core-infra/internal/construct"
	"github.com/academic-agent/core-infra/internal/corestack"
)

func coreAssembly(t *testing.T) *construct.Assembly {
	t.Helper()
	app := construct.NewApp()
	_, err := corestack.NewCoreStack(app, corestack.DefaultStackName, construct.StackProps{
		Env: construct.Environment{Account: "123456789012", Region: "eu-west-1"},
	})
	require.NoError(t, err)
	asm, err := app.Synth()
	require.NoError(t, err)
	return asm
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cdk.out")

	written, err := Write(dir, coreAssembly(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "AcademicAgentCoreStack.template.json"),
		filepath.Join(dir, "manifest.json"),
	}, written)

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, ManifestVersion, raw["version"])

	artifact := raw["artifacts"].(map[string]any)["AcademicAgentCoreStack"].(map[string]any)
	assert.Equal(t, "aws:cloudformation:stack", artifact["type"])
	assert.Equal(t, "aws://123456789012/eu-west-1", artifact["environment"])
	props := artifact["properties"].(map[string]any)
	assert.Equal(t, "AcademicAgentCoreStack.template.json", props["templateFile"])
}

func TestWrite_Empty(t *testing.T) {
	_, err := Write(t.TempDir(), &construct.Assembly{})
	assert.Error(t, err)

	_, err = Write(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestReadManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, coreAssembly(t))
	require.NoError(t, err)

	manifest, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"AcademicAgentCoreStack"}, manifest.Stacks())

	tmpl, err := LoadTemplate(dir, "AcademicAgentCoreStack")
	require.NoError(t, err)
	assert.Len(t, tmpl.Resources, 4)
	assert.Equal(t, map[string]any{"Ref": "UserPool"}, tmpl.Outputs["UserPoolId"].Value)
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	assert.ErrorIs(t, err, ErrNoManifest)
}

func TestLoadTemplate_UnknownStack(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, coreAssembly(t))
	require.NoError(t, err)

	_, err = LoadTemplate(dir, "OtherStack")
	assert.Error(t, err)
}

func TestWrite_Deterministic(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	_, err := Write(first, coreAssembly(t))
	require.NoError(t, err)
	_, err = Write(second, coreAssembly(t))
	require.NoError(t, err)

	for _, name := range []string{"AcademicAgentCoreStack.template.json", "manifest.json"} {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), name)
	}
}
