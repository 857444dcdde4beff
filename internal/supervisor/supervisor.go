// Package supervisor implements persistent-task supervision: a
// lockfile-guarded, single-instance-per-workspace registry of in-flight
// RunPersistentTarget actions, so a second pipeline run in the same
// workspace can detect and reuse (or refuse to duplicate) a running
// dev-server action instead of spawning a second copy.
//
// Adapted from turbo's internal/daemon, stripped of its gRPC transport:
// the pidfile-per-resource locking idiom and the timeout-loop shape are
// kept, generalized from "one daemon per repo" to "one supervised
// process per persistent target."
package supervisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/nightlyone/lockfile"
	"github.com/pkg/errors"

	"github.com/ontools/moonrun/internal/target"
)

// Handle tracks one running persistent action.
type Handle struct {
	Target target.Target
	PID    int
	cmd    *exec.Cmd
	lock   lockfile.Lockfile
	done   chan struct{}
}

// Wait blocks until the underlying process exits.
func (h *Handle) Wait() error {
	<-h.done
	return h.cmd.Wait()
}

// Supervisor owns the registry of persistent actions running under one
// workspace root, keyed by target so a second pipeline run can detect a
// collision.
type Supervisor struct {
	mu      sync.Mutex
	root    string
	logger  hclog.Logger
	running map[string]*Handle
}

// New returns a Supervisor rooted at workspaceRoot; pidfile locks are
// kept under <workspaceRoot>/.moon/cache/supervisor/.
func New(workspaceRoot string, logger hclog.Logger) *Supervisor {
	return &Supervisor{
		root:    workspaceRoot,
		logger:  logger.Named("supervisor"),
		running: make(map[string]*Handle),
	}
}

func targetHash(t target.Target) string {
	sum := sha256.Sum256([]byte(t.String()))
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Supervisor) stateDir() string {
	return filepath.Join(s.root, ".moon", "cache", "supervisor")
}

func (s *Supervisor) pidPath(t target.Target) string {
	return filepath.Join(s.stateDir(), targetHash(t)+".pid")
}

// IsRunning reports whether t already has a live supervised process,
// either tracked in-process or via a still-held pidfile lock from a
// prior pipeline run.
func (s *Supervisor) IsRunning(t target.Target) bool {
	s.mu.Lock()
	if _, ok := s.running[t.String()]; ok {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	lf, err := lockfile.New(s.pidPath(t))
	if err != nil {
		return false
	}
	// TryLock succeeding means nobody holds it; release immediately.
	if err := lf.TryLock(); err != nil {
		return true
	}
	_ = lf.Unlock()
	return false
}

// Start launches name/args for t under a pidfile lock. It returns
// ErrAlreadyRunning without starting a new process if this Supervisor
// already tracks a running process for t or another holder already owns
// t's lock, matching the invariant that a workspace runs at most one
// instance of a given persistent target at a time.
func (s *Supervisor) Start(ctx context.Context, t target.Target, name string, args []string, env []string, dir string) (*Handle, error) {
	// The pidfile lock alone does not refuse this process: lockfile's
	// TryLock succeeds when the recorded owner is the current PID.
	s.mu.Lock()
	_, tracked := s.running[t.String()]
	s.mu.Unlock()
	if tracked {
		return nil, ErrAlreadyRunning{Target: t}
	}

	if err := os.MkdirAll(s.stateDir(), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating supervisor state dir")
	}

	lf, err := lockfile.New(s.pidPath(t))
	if err != nil {
		panic(err) // only errors on a non-absolute path, which is a bug here
	}
	if err := lf.TryLock(); err != nil {
		return nil, ErrAlreadyRunning{Target: t}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = lf.Unlock()
		return nil, errors.Wrapf(err, "starting persistent target %s", t)
	}

	h := &Handle{Target: t, PID: cmd.Process.Pid, cmd: cmd, lock: lf, done: make(chan struct{})}

	s.mu.Lock()
	s.running[t.String()] = h
	s.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		close(h.done)
		s.mu.Lock()
		delete(s.running, t.String())
		s.mu.Unlock()
		if err := lf.Unlock(); err != nil {
			s.logger.Warn("failed releasing persistent target lock", "target", t.String(), "error", err)
		}
	}()

	s.logger.Debug("started persistent target", "target", t.String(), "pid", h.PID)
	return h, nil
}

// Stop sends an interrupt to the tracked process for t, if this
// Supervisor instance started it.
func (s *Supervisor) Stop(t target.Target) error {
	s.mu.Lock()
	h, ok := s.running[t.String()]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return h.cmd.Process.Signal(os.Interrupt)
}

// ErrAlreadyRunning is returned by Start when the target is already
// running under this Supervisor or another process holds its lock.
type ErrAlreadyRunning struct {
	Target target.Target
}

func (e ErrAlreadyRunning) Error() string {
	return fmt.Sprintf("persistent target %s is already running in this workspace", e.Target)
}
