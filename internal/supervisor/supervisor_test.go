package supervisor

import (
	"context"
	"os"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/ontools/moonrun/internal/id"
	"github.com/ontools/moonrun/internal/target"
)

func mustTarget(t *testing.T, project, task string) target.Target {
	t.Helper()
	pid, err := id.New(project)
	if err != nil {
		t.Fatalf("project id: %v", err)
	}
	tid, err := id.New(task)
	if err != nil {
		t.Fatalf("task id: %v", err)
	}
	return target.New(pid, tid)
}

func TestStartTracksRunningProcess(t *testing.T) {
	dir := t.TempDir()
	sup := New(dir, hclog.NewNullLogger())
	tgt := mustTarget(t, "web", "dev")

	h, err := sup.Start(context.Background(), tgt, "sleep", []string{"30"}, os.Environ(), dir)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = h.cmd.Process.Kill() }()

	if !sup.IsRunning(tgt) {
		t.Fatalf("expected IsRunning to report true right after Start")
	}
}

func TestStartRefusesSecondInstance(t *testing.T) {
	dir := t.TempDir()
	sup := New(dir, hclog.NewNullLogger())
	tgt := mustTarget(t, "web", "dev")

	h, err := sup.Start(context.Background(), tgt, "sleep", []string{"30"}, os.Environ(), dir)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = h.cmd.Process.Kill() }()

	_, err = sup.Start(context.Background(), tgt, "sleep", []string{"30"}, os.Environ(), dir)
	if _, ok := err.(ErrAlreadyRunning); !ok {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestIsRunningFalseWhenNeverStarted(t *testing.T) {
	dir := t.TempDir()
	sup := New(dir, hclog.NewNullLogger())
	tgt := mustTarget(t, "web", "dev")

	if sup.IsRunning(tgt) {
		t.Fatalf("expected IsRunning false for a never-started target")
	}
}
