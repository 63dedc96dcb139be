package multipass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"west", "west"},
		{"/home/ubuntu/builds/ab12", "/home/ubuntu/builds/ab12"},
		{"nrf52840dk/nrf52840", "nrf52840dk/nrf52840"},
		{"", "''"},
		{"hello world", "'hello world'"},
		{"it's", `'it'\''s'`},
		{"$HOME", "'$HOME'"},
		{"a;rm -rf /", "'a;rm -rf /'"},
		{"CONF_FILE=prj.conf", "CONF_FILE=prj.conf"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Quote(tc.in), "Quote(%q)", tc.in)
	}
}

func TestScriptBuild(t *testing.T) {
	s := NewScript().
		Export("ZEPHYR_TOOLCHAIN_VARIANT", "zephyr").
		ExportRaw("PATH", "$PATH:$HOME/.local/bin").
		Chdir("/mnt/workspace").
		Run("west", "build", "-s", "apps/hello world", "-b", "native_sim")

	want := "export ZEPHYR_TOOLCHAIN_VARIANT=zephyr" +
		" && export PATH=$PATH:$HOME/.local/bin" +
		" && cd /mnt/workspace" +
		" && west build -s 'apps/hello world' -b native_sim"
	assert.Equal(t, want, s.String())
}

func TestScriptRawLine(t *testing.T) {
	s := NewScript().RunRaw("mkdir -p /home/ubuntu/builds")
	assert.Equal(t, "mkdir -p /home/ubuntu/builds", s.String())
}
