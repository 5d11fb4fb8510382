package domain

// Command is a single process invocation handed to an executor.
type Command struct {
	// Name identifies the invocation in logs and spans, e.g. "ninja" or a task name.
	Name string
	// Args holds the program and its arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Environment holds overrides applied on top of the inherited environment.
	Environment map[string]string
	// Terminal requests a pseudo-terminal so that programs behave as when run interactively.
	Terminal bool
}
