package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/docket-app/docket/internal/backup"
	"github.com/docket-app/docket/internal/calendar"
	"github.com/docket-app/docket/internal/config"
	"github.com/docket-app/docket/internal/deadline"
	"github.com/docket-app/docket/internal/email"
	"github.com/docket-app/docket/internal/handler"
	"github.com/docket-app/docket/internal/middleware"
	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/push"
	"github.com/docket-app/docket/internal/reminder"
	"github.com/docket-app/docket/internal/store"
	ws "github.com/docket-app/docket/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	eventH      *handler.EventHandler
	deadlineH   *handler.DeadlineHandler
	memberH     *handler.MemberHandler
	pushH       *handler.PushHandler
	scheduler   *reminder.Scheduler
	backupMgr   *backup.Manager
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	events := store.NewEventStore(db)
	reminders := store.NewReminderStore(db)
	deadlines := store.NewDeadlineStore(db)
	members := store.NewMemberStore(db)
	pushSubs := store.NewPushStore(db)

	sched := reminder.NewScheduler(reminders, events, logger.With("component", "reminder"))
	if cfg.PostmarkToken != "" {
		client := email.NewClient(cfg.PostmarkToken, cfg.EmailFrom)
		sched.RegisterChannel(model.ChannelEmail, email.NewNotifier(client, members, logger.With("component", "email")))
	}
	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
	if pushSvc.Configured() {
		sched.RegisterChannel(model.ChannelInApp, push.NewNotifier(pushSvc, pushSubs, logger.With("component", "push")))
	}

	cal := calendar.NewService(events, sched, logger.With("component", "calendar"))
	tracker := deadline.NewTracker(deadlines, cal, logger.With("component", "deadline"))

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
		Prefix:        cfg.S3Prefix,
		RetentionDays: cfg.SnapshotRetention,
	}, db, logger.With("component", "backup"))

	return &Server{
		db:          db,
		hub:         hub,
		eventH:      handler.NewEventHandler(cal, hub, logger.With("component", "event_handler")),
		deadlineH:   handler.NewDeadlineHandler(tracker, hub, logger.With("component", "deadline_handler")),
		memberH:     handler.NewMemberHandler(members, logger.With("component", "member_handler")),
		pushH:       handler.NewPushHandler(pushSubs, pushSvc, logger.With("component", "push_handler")),
		scheduler:   sched,
		backupMgr:   backupMgr,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Scheduler returns the reminder scheduler for lifecycle management.
func (s *Server) Scheduler() *reminder.Scheduler {
	return s.scheduler
}

// BackupManager returns the snapshot manager for lifecycle management.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupMgr
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Calendar event API routes
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PATCH /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)
	mux.HandleFunc("POST /api/events/{id}/occurrences", s.eventH.Expand)

	// Deadline API routes
	mux.HandleFunc("POST /api/deadlines", s.deadlineH.Create)
	mux.HandleFunc("GET /api/deadlines", s.deadlineH.List)
	mux.HandleFunc("GET /api/deadlines/approaching", s.deadlineH.Approaching)
	mux.HandleFunc("GET /api/deadlines/overdue", s.deadlineH.Overdue)
	mux.HandleFunc("POST /api/deadlines/calculate", s.deadlineH.Calculate)
	mux.HandleFunc("GET /api/deadlines/{id}", s.deadlineH.Get)
	mux.HandleFunc("PATCH /api/deadlines/{id}", s.deadlineH.Update)
	mux.HandleFunc("DELETE /api/deadlines/{id}", s.deadlineH.Delete)
	mux.HandleFunc("POST /api/deadlines/{id}/complete", s.deadlineH.Complete)

	// Firm member API routes
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)

	// Push subscription API routes
	mux.HandleFunc("POST /api/push/subscribe", s.rateLimitedHandler(s.pushH.Subscribe))
	mux.HandleFunc("POST /api/push/unsubscribe", s.rateLimitedHandler(s.pushH.Unsubscribe))
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 30, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
