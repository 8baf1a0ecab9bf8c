package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calcfleet/config"
	"calcfleet/internal/accounts"
	"calcfleet/internal/admin"
	"calcfleet/internal/firmware"
	"calcfleet/internal/health"
	"calcfleet/internal/logs"
	"calcfleet/internal/middleware"
	"calcfleet/internal/models"
	"calcfleet/internal/notes"
	"calcfleet/internal/ota"
	"calcfleet/internal/pairing"
	"calcfleet/internal/registry"
	"calcfleet/internal/repo"

	"github.com/gorilla/mux"
)

type App struct {
	cfg        *config.Config
	gateway    *repo.Gateway
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) Хранилище: файловый бэкенд обязателен, БД подключается лениво */
	a.gateway = repo.NewGateway(a.cfg.Database.Driver, a.cfg.Database.DSN, a.cfg.Store.Dir)
	if a.cfg.Database.Driver == "" {
		logs.Logger.Info("no database configured, file store only")
	}

	/* 3) Доменные сервисы */
	reg := registry.New(a.gateway)
	webTokens := pairing.NewTokenTable(0)
	pair := pairing.New(a.gateway, webTokens)

	origin := firmware.NewOrigin(a.cfg.Firmware.OriginBase, a.cfg.Firmware.OriginToken)
	fw := firmware.NewStore(a.gateway.Dir(), origin)
	coord := ota.New(reg, fw, a.cfg.Firmware.PublicBase)

	secret := a.cfg.Auth.SessionSecret
	if secret == "" {
		// случайный секрет на процесс: сессии не переживают рестарт
		var raw [32]byte
		_, _ = rand.Read(raw[:])
		secret = hex.EncodeToString(raw[:])
		logs.Logger.Warn("auth.session_secret not set, using ephemeral secret")
	}
	acc := accounts.New(a.gateway, pair, secret)
	noteSvc := notes.New(a.gateway)

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 5) Health + статусный баннер */
	health.RegisterRoutesWithGateway(a.Router, a.gateway) // /healthz, /readyz
	a.Router.HandleFunc("/", a.status).Methods(http.MethodGet)

	/* 6) HTTP-поверхность */
	auth := middleware.ServiceToken(a.cfg.Auth.ServiceTokens)
	registry.RegisterRoutes(a.Router, registry.NewHandler(reg), auth, auth)
	pairing.RegisterRoutes(a.Router, pairing.NewHandler(pair), auth)
	firmware.RegisterRoutes(a.Router, firmware.NewHandler(fw, reg), auth, auth)
	ota.RegisterRoutes(a.Router, ota.NewHandler(coord), auth)
	notes.RegisterRoutes(a.Router, notes.NewHandler(noteSvc, pair, webTokens, acc, a.cfg.Auth.ServiceTokens))
	accounts.RegisterRoutes(a.Router, accounts.NewHandler(acc, a.gateway), auth)
	admin.Attach(a.Router, admin.Dependencies{
		G: a.gateway, REG: reg, PAIR: pair, FW: fw, ACC: acc, CFG: a.cfg,
	}, auth)

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

// status — корневой баннер: живость сервиса и состояние бэкенда.
func (a *App) status(w http.ResponseWriter, _ *http.Request) {
	db := "disabled"
	if a.gateway.Configured() {
		db = "disconnected"
		if a.gateway.State() == repo.Ready {
			db = "connected"
		}
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"service":  "calcfleet",
		"database": db,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second, // скачивание прошивки может быть небыстрым
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
