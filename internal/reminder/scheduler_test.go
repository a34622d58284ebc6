package reminder

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 10)}
}

func (r *recorder) fire(id string) {
	r.mu.Lock()
	r.fired = append(r.fired, id)
	r.mu.Unlock()
	r.ch <- id
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func TestScheduler_Fires(t *testing.T) {
	rec := newRecorder()
	s := NewScheduler(20*time.Millisecond, rec.fire)

	s.Arm("EMP001")
	assert.True(t, s.Pending("EMP001"))

	select {
	case id := <-rec.ch:
		assert.Equal(t, "EMP001", id)
	case <-time.After(time.Second):
		t.Fatal("reminder did not fire")
	}
	assert.False(t, s.Pending("EMP001"))
}

func TestScheduler_ArmRestartsDelay(t *testing.T) {
	rec := newRecorder()
	s := NewScheduler(60*time.Millisecond, rec.fire)

	s.Arm("EMP001")
	time.Sleep(30 * time.Millisecond)
	s.Arm("EMP001")
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "re-arming must push the deadline back")

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestScheduler_Disarm(t *testing.T) {
	rec := newRecorder()
	s := NewScheduler(20*time.Millisecond, rec.fire)

	assert.False(t, s.Disarm("EMP001"))
	s.Arm("EMP001")
	assert.True(t, s.Disarm("EMP001"))
	assert.False(t, s.Pending("EMP001"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestScheduler_Stop(t *testing.T) {
	rec := newRecorder()
	s := NewScheduler(20*time.Millisecond, rec.fire)

	s.Arm("EMP001")
	s.Arm("EMP002")
	s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.False(t, s.Pending("EMP002"))
}

func TestNewScheduler_DefaultDelay(t *testing.T) {
	s := NewScheduler(0, func(string) {})
	assert.Equal(t, DefaultDelay, s.delay)
}
