package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/models"
	"github.com/vrsandeep/storydesk/internal/session"
)

const (
	SessionCheck  = "session-check"
	LookupRefresh = "lookup-refresh"

	jobTimeout = 30 * time.Second
)

// RegisterDefaults registers the built-in jobs on jm.
func RegisterDefaults(jm *JobManager) {
	jm.Register(SessionCheck, "Session Check", RunSessionCheck)
	jm.Register(LookupRefresh, "Lookup Refresh", RunLookupRefresh)
}

// StartJobs starts the background job scheduler. The caller stops it.
func StartJobs(app JobContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	cfg := app.Config()
	scheduleJob(s, app, SessionCheck, cfg.Jobs.SessionCheckMinutes)
	scheduleJob(s, app, LookupRefresh, cfg.Jobs.LookupRefreshMinutes)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func scheduleJob(s *gocron.Scheduler, app JobContext, jobID string, interval int) {
	if interval <= 0 {
		log.Printf("Interval for '%s' is 0, the scheduled job is disabled.", jobID)
		return
	}
	_, err := s.Every(interval).Minutes().WaitForSchedule().Do(func() {
		// Go through the manager so a scheduled run never overlaps a manual one.
		if err := app.JobManager().RunJob(jobID, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobID, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobID, err)
	}
}

// RunSessionCheck asks the backend for the admin profile and stores it. An
// expired token is cleared by the client, which also fires its expiry hook.
func RunSessionCheck(app JobContext) {
	if _, err := app.Session().Token(); errors.Is(err, session.ErrNotLoggedIn) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	res, err := app.Client().Profile(ctx)
	switch {
	case errors.Is(err, api.ErrSessionExpired):
		log.Println("Session expired; log in again.")
	case err != nil:
		app.JobManager().Fail(SessionCheck, err.Error())
	case res.SessionExpired:
		log.Println("Session was rejected by the backend; log in again.")
	case !res.Success:
		app.JobManager().Fail(SessionCheck, "profile check failed: "+res.Message)
	default:
		admin, err := api.DecodeData[models.Admin](res)
		if err != nil || admin.ID == "" {
			return
		}
		if err := app.Session().UpdateAdmin(admin); err != nil {
			log.Printf("Warning: could not store the refreshed admin profile: %v", err)
		}
	}
}

// RunLookupRefresh reloads the category and language choices.
func RunLookupRefresh(app JobContext) {
	if _, err := app.Session().Token(); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := app.Lookups().Refresh(ctx); err != nil {
		log.Printf("Warning: lookup refresh failed: %v", err)
		app.JobManager().Fail(LookupRefresh, err.Error())
	}
}
