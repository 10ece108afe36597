package ame

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a pipeline failure; each kind has its own exit code.
type ErrorKind int

const (
	UnknownPackage ErrorKind = iota + 1
	CyclicDependency
	Ambiguous
	FetchFailed
	UserCancellation
	RepoInstallFailed
	BuildFailed
	CleanupFailed
)

// Exit codes.
const (
	ExitOK                = 0
	ExitMisc              = 1
	ExitUsage             = 2
	ExitUnknownPackage    = 3
	ExitCyclicDependency  = 4
	ExitAmbiguous         = 5
	ExitFetchFailed       = 6
	ExitUserCancellation  = 7
	ExitRepoInstallFailed = 8
	ExitBuildFailed       = 9
	ExitCleanupFailed     = 10
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownPackage:
		return "UnknownPackage"
	case CyclicDependency:
		return "CyclicDependency"
	case Ambiguous:
		return "Ambiguous"
	case FetchFailed:
		return "FetchFailed"
	case UserCancellation:
		return "UserCancellation"
	case RepoInstallFailed:
		return "RepoInstallFailed"
	case BuildFailed:
		return "BuildFailed"
	case CleanupFailed:
		return "CleanupFailed"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// PipelineError is the error every stage surfaces to the pipeline entry.
type PipelineError struct {
	Kind        ErrorKind
	Package     string
	Path        []string // dependency cycle, CyclicDependency only
	Status      int      // build tool exit status, BuildFailed only
	Suggestions []string // close registry names, UnknownPackage only
	Err         error
}

func (e *PipelineError) Error() string {
	var msg string
	switch e.Kind {
	case UnknownPackage:
		msg = fmt.Sprintf("package %q was not found in the repositories or the AUR", e.Package)
		if len(e.Suggestions) > 0 {
			msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
		}
	case CyclicDependency:
		msg = fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
	case Ambiguous:
		msg = fmt.Sprintf("%q matches several AUR packages and none is named exactly that", e.Package)
	case FetchFailed:
		msg = fmt.Sprintf("failed to fetch the recipe of %s", e.Package)
	case UserCancellation:
		msg = "operation cancelled by the user"
	case RepoInstallFailed:
		msg = "failed to install repository packages"
	case BuildFailed:
		msg = fmt.Sprintf("building %s failed with exit status %d", e.Package, e.Status)
	case CleanupFailed:
		msg = "failed to remove make dependencies"
	default:
		msg = e.Kind.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func errUnknownPackage(name string) *PipelineError {
	return &PipelineError{Kind: UnknownPackage, Package: name}
}

func errCyclicDependency(path []string) *PipelineError {
	return &PipelineError{Kind: CyclicDependency, Path: path}
}

func errAmbiguous(name string) *PipelineError {
	return &PipelineError{Kind: Ambiguous, Package: name}
}

func errFetchFailed(pkg string, cause error) *PipelineError {
	return &PipelineError{Kind: FetchFailed, Package: pkg, Err: cause}
}

func errUserCancellation() *PipelineError {
	return &PipelineError{Kind: UserCancellation}
}

func errRepoInstallFailed(cause error) *PipelineError {
	return &PipelineError{Kind: RepoInstallFailed, Err: cause}
}

func errBuildFailed(pkg string, status int, cause error) *PipelineError {
	return &PipelineError{Kind: BuildFailed, Package: pkg, Status: status, Err: cause}
}

func errCleanupFailed(cause error) *PipelineError {
	return &PipelineError{Kind: CleanupFailed, Err: cause}
}

// IsKind reports whether err carries a PipelineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == kind
}

// cancelled turns context cancellation into UserCancellation and passes any
// other error through.
func cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return errUserCancellation()
	}
	return err
}

// usageError marks bad command-line input.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// ExitCode maps an error returned by the pipeline or CLI to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	var pe *PipelineError
	if !errors.As(err, &pe) {
		return ExitMisc
	}
	switch pe.Kind {
	case UnknownPackage:
		return ExitUnknownPackage
	case CyclicDependency:
		return ExitCyclicDependency
	case Ambiguous:
		return ExitAmbiguous
	case FetchFailed:
		return ExitFetchFailed
	case UserCancellation:
		return ExitUserCancellation
	case RepoInstallFailed:
		return ExitRepoInstallFailed
	case BuildFailed:
		return ExitBuildFailed
	case CleanupFailed:
		return ExitCleanupFailed
	}
	return ExitMisc
}
