package reminder

import (
	"log"
	"sync"
	"time"
)

// DefaultDelay is how long an employee may stay idle with bookings before
// being asked whether they are still coming.
const DefaultDelay = 10 * time.Second

// Scheduler runs one delayed callback per employee. Arming an employee again
// restarts the delay.
type Scheduler struct {
	delay  time.Duration
	fire   func(employeeID string)
	mu     sync.Mutex
	timers map[string]*entry
}

type entry struct {
	timer *time.Timer
	gen   uint64
}

func NewScheduler(delay time.Duration, fire func(employeeID string)) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{
		delay:  delay,
		fire:   fire,
		timers: make(map[string]*entry),
	}
}

// Arm starts or restarts the reminder for the employee.
func (s *Scheduler) Arm(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var gen uint64
	if e, ok := s.timers[employeeID]; ok {
		e.timer.Stop()
		gen = e.gen + 1
	}
	e := &entry{gen: gen}
	e.timer = time.AfterFunc(s.delay, func() { s.run(employeeID, gen) })
	s.timers[employeeID] = e
}

// Disarm cancels a pending reminder. It reports whether one was pending.
func (s *Scheduler) Disarm(employeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[employeeID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.timers, employeeID)
	return true
}

// Pending reports whether a reminder is armed for the employee.
func (s *Scheduler) Pending(employeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[employeeID]
	return ok
}

// Stop cancels every pending reminder.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) run(employeeID string, gen uint64) {
	s.mu.Lock()
	e, ok := s.timers[employeeID]
	// A timer that fired while being re-armed or disarmed is stale.
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, employeeID)
	s.mu.Unlock()

	log.Printf("Inactivity reminder for employee %s", employeeID)
	s.fire(employeeID)
}
