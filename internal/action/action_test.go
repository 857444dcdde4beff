package action

import (
	"errors"
	"testing"

	"github.com/ontools/moonrun/internal/target"
)

func TestNewActionIsPending(t *testing.T) {
	a := New(Node{Kind: NodeSetupTool}, 0, 0)
	if a.Status != StatusPending {
		t.Fatalf("Status = %v, want Pending", a.Status)
	}
	if a.LogTarget != "pipeline:batch:0:0" {
		t.Fatalf("LogTarget = %q", a.LogTarget)
	}
}

func TestFinishTransitionsToTerminalStatus(t *testing.T) {
	a := New(Node{Kind: NodeRunTarget}, 1, 2)
	a.Finish(StatusFailed, errors.New("boom"))
	if !a.HasFailed() {
		t.Fatalf("expected HasFailed() true")
	}
	if a.Error == nil {
		t.Fatalf("expected Error to be set")
	}
}

func TestShouldAbortOnlyOnFailedAndAbort(t *testing.T) {
	a := New(Node{Kind: NodeRunTarget}, 0, 0)
	a.Finish(StatusFailed, errors.New("boom"))
	if a.ShouldAbort() {
		t.Fatalf("plain Failed must not request abort")
	}

	b := New(Node{Kind: NodeRunTarget}, 0, 1)
	b.Finish(StatusFailedAndAbort, errors.New("boom"))
	if !b.ShouldAbort() {
		t.Fatalf("FailedAndAbort must request abort")
	}
}

func TestNodeLabelFormatsRunTarget(t *testing.T) {
	tgt, _ := target.Parse("app:build")
	n := Node{Kind: NodeRunTarget, Target: tgt}
	if n.Label() != "RunTarget(app:build)" {
		t.Fatalf("Label() = %q", n.Label())
	}
}

func TestContextConcurrentAccess(t *testing.T) {
	ctx := NewContext([]string{"app:build"})
	if !ctx.IsPrimary("app:build") {
		t.Fatalf("expected app:build to be primary")
	}

	done := make(chan struct{})
	go func() {
		ctx.AddTouchedFiles([]string{"src/index.ts"})
		close(done)
	}()
	<-done

	if !ctx.TouchedFiles().Contains("src/index.ts") {
		t.Fatalf("expected touched file to be recorded")
	}
}
