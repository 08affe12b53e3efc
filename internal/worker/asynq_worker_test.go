package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/queue"
	"github.com/mavazi-pos/internal/service"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	err      error
	calls    []uint
	dueCalls int
	due      int
}

func (f *fakeExpirer) ExpireOrder(_ context.Context, orderID uint, _ time.Time) (bool, error) {
	f.calls = append(f.calls, orderID)
	return f.err == nil, f.err
}

func (f *fakeExpirer) ExpireDue(_ context.Context, _ time.Time, _ int) (int, error) {
	f.dueCalls++
	return f.due, f.err
}

func timeoutTask(t *testing.T, orderID uint) *asynq.Task {
	t.Helper()
	task, err := queue.NewOrderReservationTimeoutTask(queue.OrderReservationTimeoutPayload{OrderID: orderID})
	require.NoError(t, err)
	return task
}

func TestReservationTimeoutExpiresOrder(t *testing.T) {
	expirer := &fakeExpirer{}
	consumer := &Consumer{orders: expirer, now: time.Now}

	require.NoError(t, consumer.handleOrderReservationTimeout(context.Background(), timeoutTask(t, 42)))
	require.Equal(t, []uint{42}, expirer.calls)
}

func TestReservationTimeoutSkipsInvalidPayload(t *testing.T) {
	expirer := &fakeExpirer{}
	consumer := &Consumer{orders: expirer, now: time.Now}

	require.NoError(t, consumer.handleOrderReservationTimeout(context.Background(), timeoutTask(t, 0)))
	require.Empty(t, expirer.calls)

	broken := asynq.NewTask(queue.TaskOrderReservationTimeout, []byte("{"))
	var syntaxErr *json.SyntaxError
	require.ErrorAs(t, consumer.handleOrderReservationTimeout(context.Background(), broken), &syntaxErr)
}

func TestReservationTimeoutErrorHandling(t *testing.T) {
	expirer := &fakeExpirer{err: service.ErrOrderNotFound}
	consumer := &Consumer{orders: expirer, now: time.Now}
	require.NoError(t, consumer.handleOrderReservationTimeout(context.Background(), timeoutTask(t, 7)))

	expirer.err = errors.New("db down")
	require.Error(t, consumer.handleOrderReservationTimeout(context.Background(), timeoutTask(t, 7)))
}

func TestReservationTimeoutWithoutOrderService(t *testing.T) {
	consumer := NewConsumer(nil)
	require.NoError(t, consumer.handleOrderReservationTimeout(context.Background(), timeoutTask(t, 3)))
}

func TestSweepExpired(t *testing.T) {
	expirer := &fakeExpirer{due: 3}
	consumer := &Consumer{orders: expirer, now: time.Now}
	require.Equal(t, 3, consumer.sweepExpired(context.Background()))

	expirer.err = errors.New("boom")
	require.Zero(t, consumer.sweepExpired(context.Background()))
	require.Equal(t, 2, expirer.dueCalls)
}

func TestExpireSweepLoopStopsOnCancel(t *testing.T) {
	expirer := &fakeExpirer{}
	consumer := &Consumer{orders: expirer, now: time.Now}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	consumer.runExpireSweepLoop(ctx, time.Hour)
	require.Equal(t, 1, expirer.dueCalls)
}

func TestServiceWithoutQueueRunsSweepOnly(t *testing.T) {
	expirer := &fakeExpirer{due: 1}
	consumer := &Consumer{orders: expirer, now: time.Now}
	svc := NewService(&config.QueueConfig{Enabled: false}, consumer, time.Hour)
	require.Nil(t, svc.server)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	require.Eventually(t, func() bool {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	require.GreaterOrEqual(t, expirer.dueCalls, 1)
	require.NoError(t, svc.Stop(context.Background()))
}
