package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/finsense/ai/classifier"
	"github.com/hrygo/finsense/ai/core/llm"
	"github.com/hrygo/finsense/ai/generator"
	"github.com/hrygo/finsense/ai/metrics"
	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/finance/advisor"
	"github.com/hrygo/finsense/finance/monitor"
	"github.com/hrygo/finsense/finance/pipeline"
	"github.com/hrygo/finsense/finance/report"
	"github.com/hrygo/finsense/internal/profile"
	"github.com/hrygo/finsense/internal/version"
	"github.com/hrygo/finsense/plugin/chat_apps"
	"github.com/hrygo/finsense/plugin/chat_apps/channels"
	"github.com/hrygo/finsense/plugin/chat_apps/channels/telegram"
	"github.com/hrygo/finsense/plugin/cron"
	"github.com/hrygo/finsense/plugin/pricefeed"
	"github.com/hrygo/finsense/store"
)

// Server wires the chat channel, the finance pipeline, the scheduler and the
// health/metrics HTTP endpoints.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	channel    channels.ChatChannel
	notifier   finance.Notifier
	scheduler  *cron.Scheduler
	metrics    *metrics.PrometheusExporter
	llm        llm.Service

	classifier classifier.Classifier
	generator  generator.Generator
	feed       finance.PriceFeed

	service *pipeline.Service
	advisor *advisor.Advisor
	monitor *monitor.Monitor
	digest  *report.Digest

	loc *time.Location
	now func() time.Time
}

type Option func(*Server)

// WithChannel replaces the Telegram channel.
func WithChannel(ch channels.ChatChannel) Option {
	return func(s *Server) { s.channel = ch }
}

func WithPriceFeed(f finance.PriceFeed) Option {
	return func(s *Server) { s.feed = f }
}

func WithClassifier(c classifier.Classifier) Option {
	return func(s *Server) { s.classifier = c }
}

func WithGenerator(g generator.Generator) Option {
	return func(s *Server) { s.generator = g }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer builds every component from the profile. Components passed as
// options are used as given.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, opts ...Option) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
		metrics: metrics.NewPrometheusExporter(metrics.DefaultConfig()),
		loc:     profile.Location(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.buildAI(); err != nil {
		return nil, err
	}
	if s.channel == nil {
		ch, err := telegram.NewTelegramChannel(&telegram.TelegramConfig{BotToken: profile.TelegramToken})
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram channel: %w", err)
		}
		s.channel = ch
	}
	if s.feed == nil {
		s.feed = pricefeed.NewYahoo(profile.PriceFeedURL)
	}
	s.notifier = channels.Notifier{Channel: s.channel}

	s.scheduler = cron.New(
		cron.WithLocation(s.loc),
		cron.WithClock(s.now),
		cron.WithTick(profile.ReminderTick()),
		cron.WithMetrics(s.metrics),
	)

	interpreter := pipeline.NewInterpreter(s.classifier, s.generator,
		pipeline.WithLocation(s.loc),
		pipeline.WithClock(s.now),
		pipeline.WithMetrics(s.metrics),
	)
	executor := pipeline.NewExecutor(store, s.notifier, s.scheduler)
	s.service = pipeline.NewService(store, interpreter, executor, pipeline.WithServiceClock(s.now))
	s.advisor = advisor.New(s.classifier, s.generator)
	s.monitor = monitor.New(store, s.feed, s.notifier, monitor.WithMetrics(s.metrics))
	s.digest = report.NewDigest(store, s.generator, s.notifier)

	s.echoServer = s.newEcho()
	return s, nil
}

func (s *Server) buildAI() error {
	if s.classifier != nil && s.generator != nil {
		return nil
	}
	if !s.Profile.IsAIEnabled() {
		slog.Warn("AI disabled, using keyword classifier and no text generation")
		if s.classifier == nil {
			s.classifier = classifier.NewKeywordClassifier(nil)
		}
		if s.generator == nil {
			s.generator = generator.Noop{}
		}
		return nil
	}

	svc, err := llm.NewService(&llm.Config{
		Provider:    s.Profile.ALLMProvider,
		Model:       s.Profile.ALLMModel,
		APIKey:      s.Profile.ALLMAPIKey,
		BaseURL:     s.Profile.ALLMBaseURL,
		Temperature: 0.7,
		Timeout:     s.Profile.ALLMTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create llm service: %w", err)
	}
	s.llm = svc
	if s.classifier == nil {
		s.classifier = classifier.NewCachedClassifier(classifier.NewLLMClassifier(svc, s.metrics), "llm", s.metrics)
	}
	if s.generator == nil {
		s.generator = generator.NewLLMGenerator(svc, s.metrics)
	}
	return nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": s.Profile.Version,
			"commit":  version.ShortCommit(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	return e
}

// Start registers the recurring jobs and starts the scheduler, the update loop
// and the HTTP server. It returns once everything is running.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.scheduler.ScheduleRecurring(s.Profile.WeeklyDigestCron, "weekly-digest", s.runDigest); err != nil {
		return fmt.Errorf("failed to schedule weekly digest: %w", err)
	}
	if _, err := s.scheduler.ScheduleRecurring(s.Profile.InvestmentCheckCron, "investment-check", s.runMonitor); err != nil {
		return fmt.Errorf("failed to schedule investment check: %w", err)
	}
	s.scheduler.Start(ctx)

	if s.llm != nil {
		go s.llm.Warmup(ctx)
	}

	go s.listen(ctx)

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start http server", "address", address, "error", err)
		}
	}()
	return nil
}

// Shutdown stops the HTTP server, the scheduler and the channel, then closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown http server", "error", err)
	}
	s.scheduler.Stop()
	if err := s.channel.Close(); err != nil {
		slog.Error("failed to close chat channel", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server stopped")
}

// listen processes updates one at a time until the channel closes.
func (s *Server) listen(ctx context.Context) {
	for msg := range s.channel.Updates(ctx) {
		s.handleIncoming(ctx, msg)
	}
	slog.Info("update loop stopped")
}

func (s *Server) handleIncoming(ctx context.Context, msg *chat_apps.IncomingMessage) {
	logger := slog.With("actor_id", msg.ActorID, "type", msg.Type.String())
	switch msg.Type {
	case chat_apps.MessageTypeCommand:
		s.handleCommand(ctx, msg)
	case chat_apps.MessageTypeCallback:
		s.handleCallback(ctx, msg)
	default:
		out, err := s.service.HandleMessage(ctx, msg.ActorID, msg.Content)
		if err != nil {
			logger.Error("failed to handle message", "error", err)
			return
		}
		if out.Err != nil {
			logger.Info("message not actionable", "interaction_id", out.ID, "reason", out.Err)
		}
	}
}

func (s *Server) runDigest(ctx context.Context) {
	if _, err := s.digest.Run(ctx); err != nil {
		slog.Error("weekly digest failed", "error", err)
	}
}

func (s *Server) runMonitor(ctx context.Context) {
	if _, err := s.monitor.Run(ctx); err != nil {
		slog.Error("investment check failed", "error", err)
	}
}
