package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradecrafter/internal/auth"
	"tradecrafter/internal/config"
	"tradecrafter/internal/db"
	"tradecrafter/internal/httpserver"
	"tradecrafter/internal/ledger"
	"tradecrafter/internal/marketdata"
	"tradecrafter/internal/storage"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx := context.Background()

	var store interface {
		ledger.Store
		auth.UserStore
	}
	if cfg.DBDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		pg := storage.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal(err)
		}
		store = pg
	} else {
		log.Warn("DB_DSN not set, using in-memory store")
		store = storage.NewMemory()
	}

	bus := marketdata.NewBus()
	quotes := marketdata.NewQuotes()

	defaultBalance := decimal.Zero
	if cfg.DefaultBalance != "" {
		defaultBalance, err = decimal.NewFromString(cfg.DefaultBalance)
		if err != nil {
			log.Fatal(err)
		}
	}
	ledgerSvc := ledger.NewService(store, quotes, ledger.Options{
		DefaultBalance:  defaultBalance,
		DefaultLeverage: cfg.DefaultLeverage,
		QuoteTimeout:    cfg.QuoteTimeout,
		Publisher:       bus,
		Logger:          log,
	})

	authSvc := auth.NewService(store, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authHandler := auth.NewHandler(authSvc)
	ledgerHandler := ledger.NewHandler(ledgerSvc)
	marketHandler := marketdata.NewHandler(quotes, ledgerSvc)
	wsHandler := httpserver.NewWSHandler(bus, authSvc, ledgerSvc, cfg.WebSocketOrigin)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:   authHandler,
		LedgerHandler: ledgerHandler,
		MarketHandler: marketHandler,
		AuthService:   authSvc,
		WSHandler:     wsHandler,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.ExpirySweep)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case now := <-ticker.C:
				n, err := ledgerSvc.ExpireOrders(sweepCtx, now.UTC())
				if err != nil {
					log.WithError(err).Warn("order expiry sweep failed")
				} else if n > 0 {
					log.WithField("expired", n).Info("orders expired")
				}
			}
		}
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		stopSweep()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
