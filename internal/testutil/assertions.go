package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// taskFinished reports whether the logs show the named task completing.
func taskFinished(logs, name string) bool {
	marker := fmt.Sprintf("task=%s ", name)
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "Finished task") && strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// AssertTaskRan checks the captured logs to confirm that a task completed.
func AssertTaskRan(t *testing.T, result *HarnessResult, name string) {
	t.Helper()
	require.True(t, taskFinished(result.LogOutput, name),
		"expected log output for task '%s' was not found in logs", name)
}

// AssertTaskNotRan checks the captured logs to confirm that a task never
// completed.
func AssertTaskNotRan(t *testing.T, result *HarnessResult, name string) {
	t.Helper()
	require.False(t, taskFinished(result.LogOutput, name),
		"task '%s' was not expected to run", name)
}
