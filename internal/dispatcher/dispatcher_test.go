package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/pagbem/withdraw-api/pkg/errorspkg"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestRunOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockService(ctrl)
	service.EXPECT().ProcessScheduled(gomock.Any()).Times(1).Return(3, nil)

	d := New(service, time.Minute)

	processed, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, processed)
}

func TestRunOncePropagatesError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockService(ctrl)
	service.EXPECT().ProcessScheduled(gomock.Any()).Times(1).Return(1, errorspkg.ErrInternal)

	d := New(service, time.Minute)

	processed, err := d.RunOnce(context.Background())
	require.EqualError(t, err, errorspkg.ErrInternal.Error())
	require.Equal(t, 1, processed)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockService(ctrl)
	// The pass runs before the cancellation check, so exactly once.
	service.EXPECT().ProcessScheduled(gomock.Any()).Times(1).Return(0, nil)

	d := New(service, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestRunContinuesAfterPassError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockService(ctrl)

	ctx, cancel := context.WithCancel(context.Background())

	gomock.InOrder(
		service.EXPECT().ProcessScheduled(gomock.Any()).Return(0, errorspkg.ErrInternal),
		service.EXPECT().ProcessScheduled(gomock.Any()).DoAndReturn(func(context.Context) (int, error) {
			cancel()
			return 1, nil
		}),
	)

	d := New(service, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not keep going after a pass error")
	}
}
