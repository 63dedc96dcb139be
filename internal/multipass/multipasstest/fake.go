// Package multipasstest provides a scripted multipass Runner so the layers
// above the CLI boundary can be tested without a VM.
package multipasstest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/westvm/westvm/internal/multipass"
)

// Rule describes the scripted result for invocations whose leading
// arguments equal Prefix.
type Rule struct {
	// Prefix matches when the invocation's leading arguments equal it.
	Prefix []string
	// Contains additionally requires some argument to contain this
	// substring.
	Contains string
	// Once retires the rule after its first match, so later invocations
	// fall through to subsequent rules.
	Once bool

	Stdout string
	Stderr string
	Code   int
	Err    error

	// Do, when set, produces the result instead of the static fields.
	// The spec's streams are wired; Do may read or write them.
	Do func(spec multipass.RunSpec) (int, error)
}

// Fake is a scripted multipass.Runner. Rules are matched in order and the
// first live match wins; invocations with no matching rule return an
// error, which surfaces in the test's assertions.
type Fake struct {
	mu    sync.Mutex
	rules []*scriptedRule
	calls [][]string
}

type scriptedRule struct {
	Rule
	used bool
}

// New creates a Fake with the given rules.
func New(rules ...Rule) *Fake {
	f := &Fake{}
	for _, r := range rules {
		f.On(r)
	}
	return f
}

// On appends a rule.
func (f *Fake) On(r Rule) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &scriptedRule{Rule: r})
	return f
}

// Run implements multipass.Runner.
func (f *Fake) Run(_ context.Context, spec multipass.RunSpec) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), spec.Args...))
	var match *scriptedRule
	for _, r := range f.rules {
		if r.used && r.Once {
			continue
		}
		if !hasPrefix(spec.Args, r.Prefix) {
			continue
		}
		if r.Contains != "" && !anyContains(spec.Args, r.Contains) {
			continue
		}
		r.used = true
		match = r
		break
	}
	f.mu.Unlock()

	if match == nil {
		return 1, fmt.Errorf("no scripted rule for: multipass %s", strings.Join(spec.Args, " "))
	}
	if match.Do != nil {
		return match.Do(spec)
	}
	if match.Stdout != "" && spec.Stdout != nil {
		if _, err := io.WriteString(spec.Stdout, match.Stdout); err != nil {
			return -1, err
		}
	}
	if match.Stderr != "" && spec.Stderr != nil {
		if _, err := io.WriteString(spec.Stderr, match.Stderr); err != nil {
			return -1, err
		}
	}
	return match.Code, match.Err
}

// Calls returns the argument lists of every invocation so far.
func (f *Fake) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many invocations begin with prefix.
func (f *Fake) CallCount(prefix ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if hasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func hasPrefix(args, prefix []string) bool {
	if len(args) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if args[i] != p {
			return false
		}
	}
	return true
}

func anyContains(args []string, substr string) bool {
	for _, a := range args {
		if strings.Contains(a, substr) {
			return true
		}
	}
	return false
}

// ListJSON renders a `multipass list --format json` document holding one
// instance in the given state. StateAbsent renders an empty list.
func ListJSON(name string, state multipass.State) string {
	type entry struct {
		IPv4    []string `json:"ipv4"`
		Name    string   `json:"name"`
		Release string   `json:"release"`
		State   string   `json:"state"`
	}
	doc := struct {
		List []entry `json:"list"`
	}{List: []entry{}}
	if state != multipass.StateAbsent {
		doc.List = append(doc.List, entry{
			IPv4:    []string{"192.168.64.2"},
			Name:    name,
			Release: "Ubuntu 24.04 LTS",
			State:   string(state),
		})
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

// InfoJSON renders a `multipass info --format json` document with the
// given mount table (VM path as key, host source as value).
func InfoJSON(name string, mounts map[string]string) string {
	type mount struct {
		SourcePath string `json:"source_path"`
	}
	ms := map[string]mount{}
	for vmPath, src := range mounts {
		ms[vmPath] = mount{SourcePath: src}
	}
	doc := map[string]interface{}{
		"errors": []string{},
		"info": map[string]interface{}{
			name: map[string]interface{}{"mounts": ms},
		},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}
