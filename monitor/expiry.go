package monitor

import (
	"log"
	"os"
	"strconv"
	"time"

	"profile-hub-api/services"
)

// ExpirySweeper reminds task owners about batches that are about to
// expire and removes the ones that already have.
type ExpirySweeper struct {
	tasks       *services.TaskService
	invitations *services.InvitationService
	interval    time.Duration
	window      time.Duration
	stop        chan struct{}
}

func NewExpirySweeper(tasks *services.TaskService, invitations *services.InvitationService) *ExpirySweeper {
	intervalMin, _ := strconv.Atoi(os.Getenv("EXPIRY_SWEEP_INTERVAL_MINUTES"))
	if intervalMin <= 0 {
		intervalMin = 60
	}
	if tasks == nil {
		tasks = services.NewTaskService(nil)
	}
	if invitations == nil {
		invitations = services.NewInvitationService(nil)
	}
	return &ExpirySweeper{
		tasks:       tasks,
		invitations: invitations,
		interval:    time.Duration(intervalMin) * time.Minute,
		window:      7 * 24 * time.Hour,
		stop:        make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *ExpirySweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(time.Now().UTC())
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *ExpirySweeper) Stop() {
	close(s.stop)
}

// Sweep performs one pass: reminders first, then removals.
func (s *ExpirySweeper) Sweep(now time.Time) {
	expiring, err := s.tasks.FindExpiring(now, s.window)
	if err != nil {
		log.Printf("Expiry sweep: failed to find expiring tasks: %v", err)
	} else {
		for i := range expiring {
			task := &expiring[i]
			if err := s.invitations.SendTaskExpiryReminder(task); err != nil {
				log.Printf("Expiry sweep: failed to send reminder for task %d: %v", task.TaskID, err)
				continue
			}
			if err := s.tasks.MarkExpiryEmailSent(task); err != nil {
				log.Printf("Expiry sweep: failed to mark reminder for task %d: %v", task.TaskID, err)
			}
		}
	}

	expired, err := s.tasks.FindExpired(now)
	if err != nil {
		log.Printf("Expiry sweep: failed to find expired tasks: %v", err)
		return
	}
	for i := range expired {
		task := &expired[i]
		if err := s.tasks.DeleteTask(task.TaskID); err != nil {
			log.Printf("Expiry sweep: failed to delete expired task %d: %v", task.TaskID, err)
			continue
		}
		log.Printf("Expiry sweep: removed expired task %d (%s)", task.TaskID, task.DisplayName())
	}
}
