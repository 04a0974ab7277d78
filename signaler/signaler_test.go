package signaler

import (
	"os"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForInterrupt(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("a process cannot signal itself on windows")
	}
	sigC := WaitForInterrupt()
	assert.Equal(t, 1, cap(sigC), "channel must be buffered so a signal is never dropped")

	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, proc.Signal(syscall.SIGTERM))
	select {
	case sig := <-sigC:
		assert.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("SIGTERM not received")
	}
}
