package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adisurya/moto-store/internal/catalog"
	"github.com/adisurya/moto-store/internal/config"
	"github.com/adisurya/moto-store/internal/httpx"
	kafkax "github.com/adisurya/moto-store/internal/kafka"
	"github.com/adisurya/moto-store/internal/orders"
	"github.com/adisurya/moto-store/internal/postgres"
	"github.com/adisurya/moto-store/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	// Repos & handlers
	router := httpx.NewRouter()
	ch := &httpx.CatalogHandler{Catalog: &catalog.Repo{DB: db}}
	ch.Register(router)
	oh := &httpx.OrdersHandler{
		Store:    &orders.Repo{DB: db},
		Cache:    &redisx.OrderCache{Client: rdb, Service: cfg.ServiceName},
		Producer: prod,
		Service:  cfg.ServiceName,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	cancel()
	prod.WaitClosed()
}
