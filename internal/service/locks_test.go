package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionLocks(t *testing.T) {
	t.Parallel()
	var locks SessionLocks

	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	require.Equal(t, 2, locks.Len())

	got, done := make(chan struct{}), make(chan struct{})
	go func() {
		u := locks.Lock("a")
		close(got)
		u()
		close(done)
	}()
	select {
	case <-got:
		t.Fatal("second holder entered a locked session")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	<-got
	<-done
	unlockB()
	unlockB()
	require.Zero(t, locks.Len())
}
