package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/application"
	"Panikkar/bot/chat/mainmenu"
	"Panikkar/bot/chat/myjobs"
	"Panikkar/bot/chat/posting"
	"Panikkar/bot/chat/registration"
	wachat "Panikkar/bot/chat/whatsapp"
	"Panikkar/bot/whatsapp"
	"Panikkar/impl/core"
	"Panikkar/internal/cache"
	"Panikkar/internal/config"
	"Panikkar/internal/database"
	"Panikkar/internal/http-server/api"
	"Panikkar/internal/lib/logger"
	"Panikkar/internal/lib/sl"
	"Panikkar/internal/observability/metrics"
	"Panikkar/internal/service/marketplace"
	"Panikkar/internal/service/media"
	"Panikkar/internal/service/timeout"
	"Panikkar/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	lg.Info("starting panikkar", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil || db == nil {
		lg.Error("mongo is required for api keys and photos", sl.Err(err))
		return
	}
	lg.With(
		slog.String("host", conf.Mongo.Host),
		slog.String("port", conf.Mongo.Port),
		slog.String("user", conf.Mongo.User),
		slog.String("database", conf.Mongo.Database),
	).Info("mongo client initialized")

	gdb, err := marketplace.Connect(conf.PostgresDSN())
	if err != nil {
		lg.Error("postgres", sl.Err(err))
		return
	}
	market := marketplace.New(gdb, lg)
	if err = market.Migrate(); err != nil {
		lg.Error("marketplace migration", sl.Err(err))
		return
	}
	lg.With(
		slog.String("host", conf.Postgres.Host),
		slog.String("database", conf.Postgres.Database),
	).Info("marketplace initialized")

	var storage chat.SessionStorage
	switch conf.Session.Backend {
	case config.SessionBackendMongo:
		storage = chat.NewRepositoryStorage(db)
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if err = client.Ping(ctx).Err(); err != nil {
			lg.Error("redis not available", sl.Err(err))
			return
		}
		defer client.Close()
		storage = cache.NewRedisSessionStorage(client, cache.DefaultSessionTTL)
	default:
		storage = chat.NewMemoryStorage()
	}
	lg.Info("session storage", slog.String("backend", conf.Session.Backend))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	flowMetrics := metrics.NewFlowMetrics(reg)

	waBot := whatsapp.NewWhatsAppBot(
		conf.WhatsApp.AccessToken,
		conf.WhatsApp.VerifyToken,
		conf.WhatsApp.AppSecret,
		conf.WhatsApp.PhoneNumberID,
		lg,
	)
	waBot.SetAPIURL(conf.WhatsApp.ApiURL)
	waBot.SetObserver(flowMetrics)

	photos := media.NewService(waBot, db, lg)

	engine := chat.NewEngine(storage, lg)
	engine.SetObserver(flowMetrics)

	flows := []chat.Flow{
		mainmenu.NewMainMenuWorkflow(market,
			mainmenu.Option{Flow: registration.WorkflowID, Title: "Register as worker", Description: "Get hired for your trade"},
			mainmenu.Option{Flow: posting.WorkflowID, Title: "Post a job", Description: "Find a worker nearby"},
			mainmenu.Option{Flow: application.WorkflowID, Title: "Find work", Description: "Browse open jobs"},
			mainmenu.Option{Flow: myjobs.WorkflowID, Title: "My jobs", Description: "See applicants, close a job"},
		),
		registration.NewRegistrationWorkflow(market, photos, lg),
		posting.NewPostingWorkflow(market, conf.Limits),
		application.NewApplicationWorkflow(market, market, conf.Limits.NoteMax, lg),
		myjobs.NewMyJobsWorkflow(market, market, lg),
	}
	for _, f := range flows {
		if err = engine.RegisterFlow(f); err != nil {
			lg.Error("register flow", slog.String("flow", string(f.ID())), sl.Err(err))
			return
		}
	}
	if err = engine.SetDefaultFlow(mainmenu.WorkflowID); err != nil {
		lg.Error("default flow", sl.Err(err))
		return
	}

	handler := core.New(storage, engine, lg)
	handler.SetAuthKey(conf.Listen.ApiKey)
	handler.SetRepository(db)
	handler.SetMediaService(photos)
	handler.SetMediaSigning(conf.Media.Secret, conf.Media.UrlTTL)

	hub := ws.NewHub(lg)
	hub.SetHandler(handler)
	engine.SetListener(hub)
	go hub.Run(ctx)

	routes := api.Routes{Hub: hub, Gatherer: reg}

	// messenger stays nil without WhatsApp so timeouts reset silently
	var messenger chat.Messenger
	if conf.WhatsApp.Enabled {
		waMessenger := wachat.NewMessenger(waBot, conf.Media.PublicURL)
		waBot.SetMessageHandler(wachat.NewHandler(engine, waMessenger))
		messenger = waMessenger
		routes.Webhook = waBot
		lg.With(
			slog.String("phone_number_id", conf.WhatsApp.PhoneNumberID),
			sl.Secret("access_token", conf.WhatsApp.AccessToken),
		).Info("whatsapp bot initialized")
	} else {
		lg.Warn("whatsapp disabled, serving admin api only")
	}

	sweeper := timeout.NewSweeper(storage, engine, messenger, conf.Session.IdleTimeout, conf.Session.SweepInterval, lg)
	go sweeper.Run(ctx)

	router := api.NewRouter(lg, handler, routes)

	go func() {
		<-ctx.Done()
		lg.Info("shutting down")
		done := make(chan struct{})
		go func() {
			waBot.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
		}
		os.Exit(0)
	}()

	// *** blocking start with http server ***
	err = api.New(conf, lg, router)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
