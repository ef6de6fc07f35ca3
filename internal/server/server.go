package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/mutualaid/internal/design"
	"github.com/dukerupert/mutualaid/internal/governance"
	"github.com/dukerupert/mutualaid/internal/handler"
	"github.com/dukerupert/mutualaid/internal/middleware"
	"github.com/dukerupert/mutualaid/internal/notify"
	"github.com/dukerupert/mutualaid/internal/progression"
	"github.com/dukerupert/mutualaid/internal/quest"
	"github.com/dukerupert/mutualaid/internal/resolver"
	"github.com/dukerupert/mutualaid/internal/store"
	ws "github.com/dukerupert/mutualaid/internal/websocket"
)

// Mutations allowed per caller per minute.
const mutationLimit = 60

type Options struct {
	IdentitySecret []byte
	Governance     governance.Config
	ResolverTTL    time.Duration
	AllowedOrigins []string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	resolver      *resolver.Resolver
	dispatcher    *notify.Dispatcher
	design        *design.Service
	questH        *handler.QuestHandler
	rulesetH      *handler.RulesetHandler
	skillH        *handler.SkillHandler
	notificationH *handler.NotificationHandler
	rateLimiter   *middleware.RateLimiter
	opts          Options
	logger        *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	rulesetStore := store.NewRulesetStore(db)
	templateStore := store.NewTemplateStore(db)
	questStore := store.NewQuestStore(db)
	skillStore := store.NewSkillStore(db, progression.LevelFromXP)
	renownStore := store.NewRenownStore(db)
	notificationStore := store.NewNotificationStore(db)

	resolverOpts := []resolver.Option{resolver.WithLogger(logger.With("component", "resolver"))}
	if opts.ResolverTTL > 0 {
		resolverOpts = append(resolverOpts, resolver.WithTTL(opts.ResolverTTL))
	}
	rules := resolver.New(rulesetStore, resolverOpts...)

	dispatcher := notify.NewDispatcher(notificationStore, hub, logger.With("component", "notify"))

	engine := quest.NewEngine(quest.Deps{
		Quests:      questStore,
		Skills:      skillStore,
		Renown:      renownStore,
		Resolver:    rules,
		Notifier:    dispatcher,
		Broadcaster: hub,
		Logger:      logger.With("component", "quest"),
	})

	designSvc := design.NewService(design.Deps{
		Rulesets:   rulesetStore,
		Templates:  templateStore,
		Governance: governance.NewClient(opts.Governance),
		Resolver:   rules,
		Logger:     logger.With("component", "design"),
	})

	return &Server{
		db:            db,
		hub:           hub,
		resolver:      rules,
		dispatcher:    dispatcher,
		design:        designSvc,
		questH:        handler.NewQuestHandler(engine, logger.With("component", "quest_handler")),
		rulesetH:      handler.NewRulesetHandler(designSvc, rules, logger.With("component", "ruleset_handler")),
		skillH:        handler.NewSkillHandler(skillStore, renownStore, logger.With("component", "skill_handler")),
		notificationH: handler.NewNotificationHandler(notificationStore, logger.With("component", "notification_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		opts:          opts,
		logger:        logger,
	}
}

// Dispatcher returns the notification dispatcher; its Run loop must be started.
func (s *Server) Dispatcher() *notify.Dispatcher {
	return s.dispatcher
}

// Design returns the draft lifecycle service for the scheduled sweeps.
func (s *Server) Design() *design.Service {
	return s.design
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	requireIdentity := middleware.RequireIdentity(s.opts.IdentitySecret)
	limited := middleware.RateLimit(s.rateLimiter, middleware.UserKey, mutationLimit, time.Minute)
	outerMux.Handle("/api/", requireIdentity(limited(protectedMux)))
	outerMux.Handle("GET /ws", requireIdentity(ws.HandleWebSocket(s.hub, s.opts.AllowedOrigins, s.logger.With("component", "websocket"))))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Rulesets
	mux.HandleFunc("GET /api/rulesets/active", s.rulesetH.Active)
	mux.HandleFunc("GET /api/rulesets/templates", s.rulesetH.Templates)
	mux.HandleFunc("GET /api/rulesets/drafts", s.rulesetH.ListDrafts)
	mux.HandleFunc("POST /api/rulesets/drafts", s.rulesetH.CreateDraft)
	mux.HandleFunc("POST /api/rulesets/drafts/fork", s.rulesetH.Fork)
	mux.HandleFunc("GET /api/rulesets/drafts/{id}", s.rulesetH.GetDraft)
	mux.HandleFunc("PATCH /api/rulesets/drafts/{id}", s.rulesetH.UpdateDraft)
	mux.HandleFunc("POST /api/rulesets/drafts/{id}/submit", s.rulesetH.Submit)
	mux.HandleFunc("POST /api/rulesets/drafts/{id}/reopen", s.rulesetH.Reopen)
	mux.HandleFunc("POST /api/rulesets/activations", s.rulesetH.Activate)

	// Draft children
	mux.HandleFunc("POST /api/rulesets/drafts/{id}/quest-types", s.rulesetH.AddQuestType)
	mux.HandleFunc("PUT /api/rulesets/quest-types/{id}", s.rulesetH.UpdateQuestType)
	mux.HandleFunc("DELETE /api/rulesets/quest-types/{id}", s.rulesetH.RemoveQuestType)
	mux.HandleFunc("POST /api/rulesets/drafts/{id}/skill-domains", s.rulesetH.AddSkillDomain)
	mux.HandleFunc("PUT /api/rulesets/skill-domains/{id}", s.rulesetH.UpdateSkillDomain)
	mux.HandleFunc("DELETE /api/rulesets/skill-domains/{id}", s.rulesetH.RemoveSkillDomain)
	mux.HandleFunc("POST /api/rulesets/drafts/{id}/tiers", s.rulesetH.AddTier)
	mux.HandleFunc("PUT /api/rulesets/tiers/{id}", s.rulesetH.UpdateTier)
	mux.HandleFunc("DELETE /api/rulesets/tiers/{id}", s.rulesetH.RemoveTier)
	mux.HandleFunc("PUT /api/rulesets/drafts/{id}/recognition-sources", s.rulesetH.ReplaceSources)

	// Quests
	mux.HandleFunc("GET /api/quests", s.questH.List)
	mux.HandleFunc("POST /api/quests", s.questH.Create)
	mux.HandleFunc("POST /api/quests/from-post", s.questH.CreateFromPost)
	mux.HandleFunc("GET /api/quests/{id}", s.questH.Get)
	mux.HandleFunc("POST /api/quests/{id}/claim", s.questH.Claim)
	mux.HandleFunc("POST /api/quests/{id}/join", s.questH.Join)
	mux.HandleFunc("POST /api/quests/{id}/complete", s.questH.Complete)
	mux.HandleFunc("POST /api/quests/{id}/validations", s.questH.Validate)

	// Caller
	mux.HandleFunc("GET /api/me/skills", s.skillH.Mine)
	mux.HandleFunc("GET /api/me/notifications", s.notificationH.Mine)
}
