package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

var (
	// ErrSyntax is returned when a macro string or unit script cannot be parsed.
	ErrSyntax = zerr.New("syntax error")

	// ErrUndefinedVariable is returned when a referenced variable is not defined in any reachable scope.
	ErrUndefinedVariable = zerr.New("undefined variable")

	// ErrRecursiveExpansion is returned when a variable references itself while still being expanded.
	ErrRecursiveExpansion = zerr.New("recursive expansion")

	// ErrUnknownFunction is returned when a macro calls a function that is neither a builtin nor visible.
	ErrUnknownFunction = zerr.New("unknown function")

	// ErrArityError is returned when a function is called with the wrong number of arguments.
	ErrArityError = zerr.New("wrong number of arguments")

	// ErrMissingIdentity is returned when a unit script registers anything before declaring its identity.
	ErrMissingIdentity = zerr.New("unit script does not declare its identity first")

	// ErrDuplicateUnitName is returned when two unit scripts declare the same identity.
	ErrDuplicateUnitName = zerr.New("duplicate unit name")

	// ErrIdentityMismatch is returned when a located script declares a different identity than requested.
	ErrIdentityMismatch = zerr.New("unit identity does not match the requested unit")

	// ErrCyclicImport is returned when a unit imports a unit that is still being loaded.
	ErrCyclicImport = zerr.New("cyclic import")

	// ErrUnitNotFound is returned when no unit script declares the requested identity.
	ErrUnitNotFound = zerr.New("unit not found")

	// ErrUnknownAlias is returned when a qualified name uses an alias that was never imported.
	ErrUnknownAlias = zerr.New("unknown import alias")

	// ErrCyclicDependency is returned when the target and task graph contains a cycle.
	ErrCyclicDependency = zerr.New("cyclic dependency")

	// ErrMissingDependency is returned when a node requires a node that does not exist.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrInvalidDependency is returned when a target requires a task.
	ErrInvalidDependency = zerr.New("targets can only require targets")

	// ErrDuplicateNode is returned when a unit declares two targets or tasks with the same name.
	ErrDuplicateNode = zerr.New("target or task already exists")

	// ErrInvalidNodeName is returned when a target or task name contains invalid characters.
	ErrInvalidNodeName = zerr.New("invalid target or task name")

	// ErrLengthMismatch is returned when a per-element build derives a different number of outputs than inputs.
	ErrLengthMismatch = zerr.New("input and output count differ")

	// ErrEmptyOutputs is returned when a build template expands to no outputs.
	ErrEmptyOutputs = zerr.New("build produces no outputs")

	// ErrPathOutsideRoot is returned when a path cannot be moved because it is not below the source root.
	ErrPathOutsideRoot = zerr.New("path is outside of the source root")

	// ErrNodeNotFound is returned when a requested target or task does not exist.
	ErrNodeNotFound = zerr.New("target or task not found")

	// ErrExternalExecutorFailure is returned when the external build executor exits unsuccessfully.
	ErrExternalExecutorFailure = zerr.New("build executor failed")

	// ErrTaskBodyFailure is returned when a command of a task body fails.
	ErrTaskBodyFailure = zerr.New("task failed")

	// ErrEmptyCommand is returned when a task line expands to nothing runnable.
	ErrEmptyCommand = zerr.New("empty command")

	// ErrNoEntryUnit is returned when no entry unit was given and none could be found.
	ErrNoEntryUnit = zerr.New("no unit script found")

	// ErrAmbiguousEntryUnit is returned when more than one unit script could be the entry unit.
	ErrAmbiguousEntryUnit = zerr.New("more than one unit script found, select one with --unit")

	// ErrInvalidDefine is returned when a command line define is not of the form KEY=VALUE.
	ErrInvalidDefine = zerr.New("invalid define, expected KEY=VALUE")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrUnitReadFailed is returned when a unit script cannot be read.
	ErrUnitReadFailed = zerr.New("failed to read unit script")

	// ErrBuildFileWriteFailed is returned when the build file cannot be written.
	ErrBuildFileWriteFailed = zerr.New("failed to write build file")

	// ErrStoreCreateFailed is returned when the state directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create state directory")

	// ErrStoreReadFailed is returned when the export state cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read export state")

	// ErrStoreUnmarshalFailed is returned when the export state cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal export state")

	// ErrStoreMarshalFailed is returned when the export state cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal export state")

	// ErrStoreWriteFailed is returned when the export state cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write export state")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrGlobFailed is returned when a wildcard pattern is malformed.
	ErrGlobFailed = zerr.New("failed to expand wildcard")

	// ErrFailedToCleanOutput is returned when removing a target output fails.
	ErrFailedToCleanOutput = zerr.New("failed to clean output file")
)

// ExitCode returns the process exit code recorded in the error chain.
// It returns 0 for a nil error and 1 when no exit code was recorded.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	for current := err; current != nil; current = errors.Unwrap(current) {
		z, ok := current.(*zerr.Error)
		if !ok {
			continue
		}
		if code, ok := z.Metadata()["exit_code"].(int); ok && code > 0 {
			return code
		}
	}
	return 1
}
