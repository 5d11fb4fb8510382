package scheduler

import (
	"strings"

	"go.trai.ch/creator/internal/core/domain"
)

// Step is one unit of work of a run.
type Step interface {
	// String describes the step for plans and dry runs.
	String() string
}

// StepBuild invokes the build executor for a set of target phonies.
// An empty set builds the defaults of the build file.
type StepBuild struct {
	Phonies []string
}

func (s *StepBuild) String() string {
	if len(s.Phonies) == 0 {
		return "build (default)"
	}
	return "build " + strings.Join(s.Phonies, " ")
}

func (s *StepBuild) add(phonies ...string) {
	for _, p := range phonies {
		if !containsString(s.Phonies, p) {
			s.Phonies = append(s.Phonies, p)
		}
	}
}

// StepTask runs the body of a task.
type StepTask struct {
	Task *domain.Task
}

func (s *StepTask) String() string {
	return "task " + s.Task.ID().String()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
