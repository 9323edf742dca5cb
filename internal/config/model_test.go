package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, Default().Validate())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	m := Default()
	m.AssetsDir = " "
	m.Server.Port = 70000
	m.Server.ReloadPort = -1
	m.Server.Index = ""

	// --- Act ---
	err := m.Validate()

	// --- Assert ---
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "assets_dir must not be empty")
	assert.Contains(t, msg, "server port 70000 is out of range")
	assert.Contains(t, msg, "server reload_port -1 is out of range")
	assert.Contains(t, msg, "server index must not be empty")
}

func TestValidate_Ports(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		port    int
		reload  int
		wantErr string
	}{
		{name: "distinct", port: 8080, reload: 3000},
		{name: "both ephemeral", port: 0, reload: 0},
		{name: "same port", port: 9000, reload: 9000, wantErr: "must differ"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := Default()
			m.Server.Port, m.Server.ReloadPort = tc.port, tc.reload

			err := m.Validate()

			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidate_RejectsOutputAtRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testCases := []struct {
		name    string
		output  string
		assets  string
		wantErr string
	}{
		{name: "nested", output: "dist", assets: "dist/assets"},
		{name: "absolute inside root", output: filepath.Join(root, "public"), assets: "public/static"},
		{name: "dot", output: ".", assets: "dist/assets", wantErr: `output_dir "." would clean the project root`},
		{name: "root itself", output: root, assets: "dist/assets", wantErr: "would clean the project root"},
		{name: "parent", output: "..", assets: "dist/assets", wantErr: `output_dir ".." is outside the project root`},
		{name: "parent with slash", output: "../", assets: "dist/assets", wantErr: "is outside the project root"},
		{name: "filesystem root", output: "/", assets: "dist/assets", wantErr: "is outside the project root"},
		{name: "escaping through a subdir", output: "dist/../../x", assets: "dist/assets", wantErr: "is outside the project root"},
		{name: "assets outside", output: "dist", assets: "../assets", wantErr: `assets_dir "../assets" is outside the project root`},
		{name: "dot-dot prefixed name stays inside", output: "..dist", assets: "..dist/assets"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			m := Default()
			m.Root = root
			m.OutputDir, m.AssetsDir = tc.output, tc.assets

			// --- Act ---
			err := m.Validate()

			// --- Assert ---
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestPath_ResolvesAgainstRoot(t *testing.T) {
	t.Parallel()

	m := Default()
	m.Root = "/srv/site"

	assert.Equal(t, filepath.Join("/srv/site", "dist", "assets"), m.Path("dist/assets"))
	assert.Equal(t, "/abs/out", m.Path("/abs/out"))
}
