package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMainTOML = `
[DB]
GormEngine = "sqlite"
Name = ":memory:"
Password = "db-secret"

[Webserver]
Port = 8080
URL = "http://localhost:8080"

[Auth.Token]
SigningKey = "0123456789abcdef0123456789abcdef-app"
`

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.toml"), []byte(testMainTOML), 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "toml", args: []string{"config", "--config", dir}, want: "Port = 8080"},
		{name: "json", args: []string{"config", "--config", dir, "--json"}, want: `"Port": 8080`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			rootCmd.SetOut(&out)
			rootCmd.SetArgs(tt.args)

			require.NoError(t, rootCmd.Execute())

			assert.Contains(t, out.String(), tt.want)
			assert.NotContains(t, out.String(), "db-secret")
			assert.NotContains(t, out.String(), "0123456789abcdef0123456789abcdef-app")
		})
	}

	outputJSON = false
}

func TestConfigCommandMissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"config", "--config", t.TempDir()})
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	require.Error(t, rootCmd.Execute())
}
