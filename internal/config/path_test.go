package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	t.Setenv("HOME", home)
	t.Setenv("RULES_DIR", "/etc/ledgersort")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "empty path", path: "", want: ""},
		{name: "bare tilde", path: "~", want: home},
		{name: "tilde prefix", path: "~/rules.json", want: filepath.Join(home, "rules.json")},
		{name: "env var", path: "$RULES_DIR/rules.json", want: "/etc/ledgersort/rules.json"},
		{name: "plain path untouched", path: "/tmp/rules.json", want: "/tmp/rules.json"},
		{name: "tilde mid-path untouched", path: "/tmp/~backup/rules.json", want: "/tmp/~backup/rules.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.path))
		})
	}
}
