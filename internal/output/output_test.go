package output

import (
	"strings"
	"testing"
)

func TestLoggerDebugGatedByVerbose(t *testing.T) {
	var out, errOut strings.Builder
	l := NewLoggerTo(&out, &errOut)

	l.Debug("hidden %d", 1)
	if errOut.Len() != 0 {
		t.Fatalf("debug printed without verbose: %q", errOut.String())
	}

	l.SetVerbose(true)
	l.Debug("shown %d", 2)
	if !strings.Contains(errOut.String(), "shown 2") {
		t.Fatalf("debug not printed with verbose: %q", errOut.String())
	}
}

func TestLoggerJSONModeSuppressesText(t *testing.T) {
	var out, errOut strings.Builder
	l := NewLoggerTo(&out, &errOut)
	l.SetJSONMode(true)

	l.Info("a")
	l.Warn("b")
	l.Error("c")
	l.Success("d")
	if out.Len() != 0 || errOut.Len() != 0 {
		t.Fatalf("json mode leaked text: out=%q err=%q", out.String(), errOut.String())
	}
}

func TestLoggerStreamsBypassJSONMode(t *testing.T) {
	var out, errOut strings.Builder
	l := NewLoggerTo(&out, &errOut)
	l.SetJSONMode(true)

	if _, err := l.Stdout().Write([]byte("program output\n")); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "program output\n" {
		t.Fatalf("stdout relay = %q", got)
	}
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		answer string
		want   bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"whatever\n", false},
	}
	for _, tc := range cases {
		var out strings.Builder
		got, err := confirm(strings.NewReader(tc.answer), &out, "Remove everything?")
		if err != nil {
			t.Fatalf("answer %q: %v", tc.answer, err)
		}
		if got != tc.want {
			t.Errorf("answer %q: got %v, want %v", tc.answer, got, tc.want)
		}
		if !strings.Contains(out.String(), "[y/N]") {
			t.Errorf("prompt missing default marker: %q", out.String())
		}
	}
}
