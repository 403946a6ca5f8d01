package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		raw     string
		want    TimeOfDay
		wantErr bool
	}{
		{raw: "09:00", want: TimeOfDay{Hour: 9}},
		{raw: " 23:59 ", want: TimeOfDay{Hour: 23, Minute: 59}},
		{raw: "7:5", want: TimeOfDay{Hour: 7, Minute: 5}},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "noon", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterDailyNextActivation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	s := New(loc, nil)

	require.NoError(t, s.RegisterDaily("daily_source_check", TimeOfDay{Hour: 9}, func(context.Context) {}))

	next, ok := s.Next("daily_source_check")
	require.True(t, ok)
	next = next.In(loc)
	require.Equal(t, 9, next.Hour())
	require.Equal(t, 0, next.Minute())
	require.True(t, next.After(time.Now()))
	require.True(t, next.Before(time.Now().Add(25*time.Hour)))
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	s := New(time.UTC, nil)
	require.NoError(t, s.RegisterDaily("job", TimeOfDay{Hour: 1}, func(context.Context) {}))
	require.ErrorIs(t, s.RegisterDaily("job", TimeOfDay{Hour: 2}, func(context.Context) {}), ErrDuplicateID)
}

func TestDeregister(t *testing.T) {
	s := New(time.UTC, nil)
	require.NoError(t, s.RegisterDaily("job", TimeOfDay{Hour: 1}, func(context.Context) {}))

	require.True(t, s.Deregister("job"))
	require.False(t, s.Deregister("job"))
	_, ok := s.Next("job")
	require.False(t, ok)

	require.NoError(t, s.RegisterDaily("job", TimeOfDay{Hour: 1}, func(context.Context) {}))
}

func TestStopCancelsJobContext(t *testing.T) {
	s := New(time.UTC, nil)

	var runs atomic.Int32
	started := make(chan struct{}, 1)
	require.NoError(t, s.register("tick", "@every 1s", func(ctx context.Context) {
		runs.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
	}))
	s.Start()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.GreaterOrEqual(t, runs.Load(), int32(1))

	_, ok := s.Next("tick")
	require.False(t, ok)
}
