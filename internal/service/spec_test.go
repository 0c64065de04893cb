//go:build !windows

package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildCommandSimple(t *testing.T) {
	s := Spec{Name: "api", Command: "sleep 100"}
	cmd := s.BuildCommand()
	if filepath.Base(cmd.Path) != "sleep" {
		t.Fatalf("expected direct exec of sleep, got %q", cmd.Path)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "100" {
		t.Fatalf("unexpected args: %v", cmd.Args)
	}
}

func TestBuildCommandMetacharactersUseShell(t *testing.T) {
	s := Spec{Name: "api", Command: "echo hi | grep hi"}
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sh" {
		t.Fatalf("expected shell wrapping, got %q", cmd.Path)
	}
	if cmd.Args[1] != "-c" || cmd.Args[2] != "echo hi | grep hi" {
		t.Fatalf("unexpected args: %v", cmd.Args)
	}
}

func TestBuildCommandExplicitShellNotDoubleWrapped(t *testing.T) {
	s := Spec{Name: "api", Command: `sh -c 'npm run dev'`}
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sh" {
		t.Fatalf("expected /bin/sh, got %q", cmd.Path)
	}
	if cmd.Args[2] != "npm run dev" {
		t.Fatalf("outer quotes should be stripped, got %q", cmd.Args[2])
	}
}

func TestBuildCommandEmpty(t *testing.T) {
	s := Spec{Name: "noop"}
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/true" {
		t.Fatalf("empty command should be a no-op, got %q", cmd.Path)
	}
}

func TestExpandWorkDirHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir in test environment")
	}
	got, err := ExpandWorkDir("~/src/api")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, "src", "api")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got, _ := ExpandWorkDir(""); got != "" {
		t.Fatalf("empty dir must stay empty, got %q", got)
	}
}

func TestExpandWorkDirAbsolute(t *testing.T) {
	got, err := ExpandWorkDir("/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "/") {
		t.Fatalf("expected absolute path, got %q", got)
	}
}
