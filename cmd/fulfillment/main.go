package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adisurya/moto-store/internal/config"
	"github.com/adisurya/moto-store/internal/fulfillment"
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
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	svc := &fulfillment.Service{
		Repo:        &orders.Repo{DB: db},
		Cache:       &redisx.OrderCache{Client: rdb, Service: cfg.ServiceName + "-fulfillment"},
		Producer:    prod,
		ServiceName: cfg.ServiceName + "-fulfillment",
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.FulfillmentGroup, orders.TopicOrderPlaced, cfg.FulfillmentWorkers)

	go func() {
		log.Printf("fulfillment consumer started: group=%s topic=%s workers=%d",
			cfg.FulfillmentGroup, orders.TopicOrderPlaced, cfg.FulfillmentWorkers)
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}
