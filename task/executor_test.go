package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupRunsAllTasks(t *testing.T) {
	e := New(0)
	g := e.Start(context.Background())
	var count atomic.Int32
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			count.Add(1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, 10, count.Load())
}

func TestGroupPropagatesFirstError(t *testing.T) {
	e := New(4)
	g := e.Start(context.Background())
	sentinel := errors.New("boom")
	g.Go(func() error { return sentinel })
	g.Go(func() error { return nil })
	err := g.Wait()
	require.Error(t, err)
}

func TestGroupContextCancelledOnError(t *testing.T) {
	e := New(2)
	g := e.Start(context.Background())
	g.Go(func() error { return errors.New("fail") })
	_ = g.Wait()
	select {
	case <-g.Context().Done():
	default:
		t.Fatal("expected context to be cancelled after a task error")
	}
}
