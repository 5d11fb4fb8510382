package domain

import "path/filepath"

const (
	// CreatorDirName is the name of the internal workspace directory.
	CreatorDirName = ".creator"

	// StateFileName is the name of the export state file inside the workspace directory.
	StateFileName = "state.json"

	// ConfigFileName is the name of the optional workspace configuration file.
	ConfigFileName = "creator.yaml"

	// UnitFileExt is the file extension of unit scripts.
	UnitFileExt = ".crunit"

	// DefaultBuildFile is the name of the generated build file.
	DefaultBuildFile = "build.ninja"

	// DefaultNinjaBinary is the executable invoked for build steps.
	DefaultNinjaBinary = "ninja"

	// SearchPathEnv lists extra unit search directories, separated by the OS list separator.
	SearchPathEnv = "CREATORPATH"

	// NinjaOutVariable lets the entry unit override the build file path.
	NinjaOutVariable = "NinjaOut"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCreatorPath returns the workspace directory below root.
func DefaultCreatorPath(root string) string {
	return filepath.Join(root, CreatorDirName)
}

// DefaultStatePath returns the path of the export state file below root.
// It joins .creator and state.json.
func DefaultStatePath(root string) string {
	return filepath.Join(root, CreatorDirName, StateFileName)
}
