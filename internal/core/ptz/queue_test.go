package ptz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmstream/streamcore/internal/logger"
)

func TestQueueDispatchesHighPriorityFirst(t *testing.T) {
	q := NewQueue(1000, logger.Default())
	q.Start()
	defer q.Stop()

	var order []string
	var mu = make(chan struct{}, 1)
	mu <- struct{}{}

	record := func(name string) func() (Result, error) {
		return func() (Result, error) {
			<-mu
			order = append(order, name)
			mu <- struct{}{}
			return Result{Success: true}, nil
		}
	}

	done := make(chan struct{}, 2)
	go func() {
		q.Submit(1, Command{Kind: CmdMove}, record("move"))
		done <- struct{}{}
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		q.Submit(1, Command{Kind: CmdMoveStop}, record("stop"))
		done <- struct{}{}
	}()

	<-done
	<-done

	require.Equal(t, []string{"stop", "move"}, order)
}

func TestQueueDepthReflectsPending(t *testing.T) {
	q := NewQueue(1000, logger.Default())

	block := make(chan struct{})
	done := make(chan struct{})
	go func() {
		q.Submit(1, Command{Kind: CmdMove}, func() (Result, error) {
			<-block
			return Result{Success: true}, nil
		})
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, q.Depth())

	q.Start()
	close(block)
	<-done
	q.Stop()
}

func TestQueueStopFailsPendingTickets(t *testing.T) {
	q := NewQueue(0.0001, logger.Default())

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Submit(1, Command{Kind: CmdMove}, func() (Result, error) {
			return Result{Success: true}, nil
		})
		errCh <- err
	}()

	time.Sleep(5 * time.Millisecond)
	q.Stop()

	err := <-errCh
	assert.Error(t, err)
}
