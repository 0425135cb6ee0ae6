//go:build unix

package procman

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecLauncherStopsProcessGroup(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	var l ExecLauncher
	pid, err := l.Start(t.TempDir(), []string{"sleep", "30"}, nil)
	require.NoError(t, err)
	assert.True(t, l.Alive(pid))

	require.NoError(t, l.Terminate(pid))
	assert.Eventually(t, func() bool { return !l.Alive(pid) }, 5*time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, l.Terminate(pid), ErrProcessGone)
}
