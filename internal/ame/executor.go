package ame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// interruptGrace is how long an interactive child gets to exit after SIGINT.
const interruptGrace = 5 * time.Second

// Executor provides a consistent interface for executing commands,
// abstracting away the privilege escalation logic.
type Executor struct {
	Context           context.Context // The context to use for cancellation
	Elevator          string          // sudo, doas or run0
	ShouldRunAsRoot   bool            // ShouldRunAsRoot specifies whether the command MUST be executed with root privileges.
	ApplyIdlePriority bool            // Apply nice -n 19 to this specific command
	Interactive       bool            // Interactive indicates whether the command may prompt the user

	euid func() int
}

func NewExecutor(ctx context.Context, elevator string) *Executor {
	if elevator == "" {
		elevator = "sudo"
	}
	return &Executor{Context: ctx, Elevator: elevator, euid: os.Geteuid}
}

// With returns a copy of the executor with the given flags.
func (e *Executor) With(root, interactive, idle bool) *Executor {
	c := *e
	c.ShouldRunAsRoot = root
	c.Interactive = interactive
	c.ApplyIdlePriority = idle
	return &c
}

func (e *Executor) isRoot() bool {
	if e.euid == nil {
		return os.Geteuid() == 0
	}
	return e.euid() == 0
}

// runInteractiveCommand executes a command attached to the TTY, without
// process group isolation, so `sudo -v` can read the password.
func runInteractiveCommand(ctx context.Context, name string, arg ...string) error {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ensureSudo checks if the sudo ticket is still valid and re-prompts if necessary.
func (e *Executor) ensureSudo() error {
	if e.isRoot() || !e.ShouldRunAsRoot || e.Elevator != "sudo" {
		return nil
	}
	checkCmd := exec.CommandContext(e.Context, "sudo", "-nv")
	checkCmd.Stdout = io.Discard
	checkCmd.Stderr = io.Discard
	if err := checkCmd.Run(); err == nil {
		return nil
	}

	colArrow.Print("-> ")
	colSuccess.Println("Sudo ticket has expired. Re-authenticating")
	if err := runInteractiveCommand(e.Context, "sudo", "-v"); err != nil {
		return fmt.Errorf("sudo re-authentication failed: %w", err)
	}
	return nil
}

// command builds the final argv: nice first, then the elevator.
func (e *Executor) command(path string, args []string) (string, []string) {
	if e.ApplyIdlePriority {
		args = append([]string{"-n", "19", path}, args...)
		path = "nice"
	}
	if e.ShouldRunAsRoot && !e.isRoot() {
		switch e.Elevator {
		case "sudo":
			args = append([]string{"-E", path}, args...)
		default:
			args = append([]string{path}, args...)
		}
		path = e.Elevator
	}
	return path, args
}

// Run executes the given command, elevating only when needed. Stdio
// defaults to the process streams.
func (e *Executor) Run(cmd *exec.Cmd) error {
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := e.ensureSudo(); err != nil {
		return err
	}

	// cmd.Path is already resolved by exec.Command; keep the original name
	// so the elevator does its own lookup.
	path, args := e.command(cmd.Args[0], cmd.Args[1:])
	finalCmd := exec.CommandContext(e.Context, path, args...)
	finalCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	if e.Interactive {
		// the child shares our terminal; let it clean up on SIGINT
		finalCmd.Cancel = func() error {
			return finalCmd.Process.Signal(os.Interrupt)
		}
		finalCmd.WaitDelay = interruptGrace
	} else {
		finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Args[0], err)
	}

	if !e.Interactive {
		pgid := finalCmd.Process.Pid
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-e.Context.Done():
				syscall.Kill(-pgid, syscall.SIGKILL)
			case <-done:
			}
		}()
	}

	if waitErr := finalCmd.Wait(); waitErr != nil {
		if e.Context.Err() != nil {
			return fmt.Errorf("command aborted: %w", e.Context.Err())
		}
		return waitErr
	}
	return nil
}

// Output runs the command and returns its stdout.
func (e *Executor) Output(cmd *exec.Cmd) ([]byte, error) {
	var buf bytes.Buffer
	cmd.Stdout = &buf
	if cmd.Stderr == nil {
		cmd.Stderr = io.Discard
	}
	err := e.Run(cmd)
	return buf.Bytes(), err
}

// exitStatus extracts the exit status of a failed command, or -1.
func exitStatus(err error) int {
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return -1
}
