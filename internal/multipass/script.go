package multipass

import (
	"regexp"
	"strings"
)

var shellSafe = regexp.MustCompile(`^[a-zA-Z0-9@%+=:,./_^-]+$`)

// Quote returns s quoted for a POSIX shell.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteArgs quotes each argument and joins them with spaces.
func QuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}

// Script assembles the bash command line for one remote execution: env
// exports, an optional working directory, then the commands, all joined
// with && so the first failure stops the chain.
type Script struct {
	parts []string
}

// NewScript creates an empty Script.
func NewScript() *Script {
	return &Script{}
}

// Export adds an environment export with a quoted value.
func (s *Script) Export(key, value string) *Script {
	s.parts = append(s.parts, "export "+key+"="+Quote(value))
	return s
}

// ExportRaw adds an environment export without quoting, for values that
// reference other variables such as PATH extensions.
func (s *Script) ExportRaw(key, rawValue string) *Script {
	s.parts = append(s.parts, "export "+key+"="+rawValue)
	return s
}

// Chdir adds a change of working directory.
func (s *Script) Chdir(dir string) *Script {
	s.parts = append(s.parts, "cd "+Quote(dir))
	return s
}

// Run adds a command with quoted arguments.
func (s *Script) Run(name string, args ...string) *Script {
	line := Quote(name)
	if len(args) > 0 {
		line += " " + QuoteArgs(args)
	}
	s.parts = append(s.parts, line)
	return s
}

// RunRaw adds a command line verbatim, for shell constructs such as
// redirects or conditionals.
func (s *Script) RunRaw(line string) *Script {
	s.parts = append(s.parts, line)
	return s
}

// String renders the script.
func (s *Script) String() string {
	return strings.Join(s.parts, " && ")
}
