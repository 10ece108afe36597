package ame

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: ExitOK},
		{err: errors.New("boom"), want: ExitMisc},
		{err: &usageError{msg: "bad flag"}, want: ExitUsage},
		{err: errUnknownPackage("x"), want: ExitUnknownPackage},
		{err: errCyclicDependency([]string{"a", "b", "a"}), want: ExitCyclicDependency},
		{err: errAmbiguous("x"), want: ExitAmbiguous},
		{err: errFetchFailed("x", errors.New("net")), want: ExitFetchFailed},
		{err: errUserCancellation(), want: ExitUserCancellation},
		{err: errRepoInstallFailed(errors.New("pacman")), want: ExitRepoInstallFailed},
		{err: errBuildFailed("x", 4, nil), want: ExitBuildFailed},
		{err: errCleanupFailed(nil), want: ExitCleanupFailed},
		{err: fmt.Errorf("wrapped: %w", errAmbiguous("x")), want: ExitAmbiguous},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPipelineErrorMessages(t *testing.T) {
	tests := []struct {
		err  *PipelineError
		want string
	}{
		{err: errCyclicDependency([]string{"a", "b", "a"}), want: "a -> b -> a"},
		{err: errBuildFailed("foo", 4, nil), want: "building foo failed with exit status 4"},
		{err: &PipelineError{Kind: UnknownPackage, Package: "fo", Suggestions: []string{"foo", "fop"}}, want: "did you mean: foo, fop?"},
		{err: errFetchFailed("foo", errors.New("timeout")), want: "foo: timeout"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); !strings.Contains(got, tt.want) {
			t.Errorf("Error() = %q, want it to contain %q", got, tt.want)
		}
	}
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := errors.New("network down")
	err := error(errFetchFailed("foo", cause))
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}
	if !IsKind(err, FetchFailed) || IsKind(err, BuildFailed) {
		t.Error("IsKind mismatch")
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	other := errors.New("other")
	if got := cancelled(ctx, other); got != other {
		t.Errorf("cancelled() = %v, want the original error", got)
	}
	if got := cancelled(ctx, fmt.Errorf("x: %w", context.Canceled)); !IsKind(got, UserCancellation) {
		t.Errorf("cancelled() = %v, want UserCancellation", got)
	}
	cancel()
	if got := cancelled(ctx, other); !IsKind(got, UserCancellation) {
		t.Errorf("cancelled() = %v after cancel, want UserCancellation", got)
	}
}
