package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"central-illustration/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type scripted struct {
	mu    sync.Mutex
	calls int
	next  func(call int) (*models.DemoStatus, error)
}

func (s *scripted) DemoStatus(ctx context.Context, demoID int64) (*models.DemoStatus, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	return s.next(n)
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func running(url string) *models.DemoStatus {
	port := 3001
	return &models.DemoStatus{Status: models.StateRunning, Port: &port, URL: &url}
}

func TestStartsUnknownAndPollsImmediately(t *testing.T) {
	src := &scripted{next: func(int) (*models.DemoStatus, error) {
		return &models.DemoStatus{Status: models.StateNotRunning}, nil
	}}
	p := New(src, 1, WithInterval(time.Hour))
	assert.Equal(t, models.StateUnknown, p.Current().Status)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return p.Current().Status == models.StateNotRunning }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, src.count())
}

func TestRefreshAfterStartReportsRunning(t *testing.T) {
	var mu sync.Mutex
	started := false
	src := &scripted{next: func(int) (*models.DemoStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		if started {
			return running("http://127.0.0.1:3001"), nil
		}
		return &models.DemoStatus{Status: models.StateNotRunning}, nil
	}}
	p := New(src, 1, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	started = true
	mu.Unlock()
	p.Refresh()

	require.Eventually(t, func() bool {
		st := p.Current()
		return st.Status == models.StateRunning && st.URL != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "http://127.0.0.1:3001", *p.Current().URL)
}

func TestNonPositiveIntervalFallsBackToDefault(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		src := &scripted{next: func(int) (*models.DemoStatus, error) {
			return &models.DemoStatus{Status: models.StateNotRunning}, nil
		}}
		p := New(src, 1, WithInterval(d))
		assert.Equal(t, DefaultInterval, p.interval, "interval %v", d)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() { p.Run(ctx); close(done) }()

		require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)
		cancel()
		<-done
		assert.Equal(t, 1, src.count())
	}
}

func TestTicksUntilCancelled(t *testing.T) {
	src := &scripted{next: func(int) (*models.DemoStatus, error) {
		return &models.DemoStatus{Status: models.StateNotRunning}, nil
	}}
	p := New(src, 1, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return src.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	after := src.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, src.count())
}

func TestFailedPollKeepsLastState(t *testing.T) {
	src := &scripted{next: func(call int) (*models.DemoStatus, error) {
		if call == 1 {
			return running("http://h:3001"), nil
		}
		return nil, errors.New("connection refused")
	}}
	p := New(src, 1)

	p.Poll(context.Background())
	st := p.Poll(context.Background())
	assert.Equal(t, models.StateRunning, st.Status)
	assert.Equal(t, models.StateRunning, p.Current().Status)
}

func TestOnChangeFiresOnTransitions(t *testing.T) {
	seq := []*models.DemoStatus{
		{Status: models.StateNotRunning},
		{Status: models.StateNotRunning},
		running("http://h:3001"),
		running("http://h:3001"),
		running("http://h:3002"),
	}
	src := &scripted{next: func(call int) (*models.DemoStatus, error) { return seq[call-1], nil }}

	var seen []models.RunState
	p := New(src, 1, OnChange(func(st models.DemoStatus) { seen = append(seen, st.Status) }))
	for range seq {
		p.Poll(context.Background())
	}
	assert.Equal(t, []models.RunState{models.StateNotRunning, models.StateRunning, models.StateRunning}, seen)
}
