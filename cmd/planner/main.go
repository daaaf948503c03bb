package main

import (
	"context"
	"errors"
	"time"

	availabilityhandler "simbook/internal/availability/handler"
	availabilityservice "simbook/internal/availability/service"
	bookinghandler "simbook/internal/booking/handler"
	bookingrepo "simbook/internal/booking/repository"
	bookingservice "simbook/internal/booking/service"
	bookingvalidator "simbook/internal/booking/validator"
	catalogrepo "simbook/internal/catalog/repository"
	catalogservice "simbook/internal/catalog/service"
	"simbook/internal/feed"
	marketplacehandler "simbook/internal/marketplace/handler"
	marketplacerepo "simbook/internal/marketplace/repository"
	marketplaceservice "simbook/internal/marketplace/service"
	marketplacevalidator "simbook/internal/marketplace/validator"
	"simbook/internal/match"
	planninghandler "simbook/internal/planning/handler"
	"simbook/internal/projection"
	"simbook/internal/risk"
	"simbook/pkg/app"
	"simbook/pkg/config"
	"simbook/pkg/contracts"
	"simbook/pkg/kafka"
	kafka_config "simbook/pkg/kafka/config"
)

const ServiceName = "planner"

const rebuildTimeout = 60 * time.Second

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	cfg.Log.Info("Starting planner service")

	sessionRepo := bookingrepo.NewMongoSessionRepository(cfg)
	lockRepo := bookingrepo.NewBookingLockRepository(cfg)
	setupRepo := catalogrepo.NewMongoSetupRepository(cfg)
	operatorRepo := catalogrepo.NewMongoOperatorRepository(cfg)
	applicationRepo := marketplacerepo.NewMongoApplicationRepository(cfg)

	producer, err := kafka.NewProducer(kafkaCfg, feed.Topic, feed.DLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create change feed producer", "error", err)
	}
	publisher := feed.NewKafkaPublisher(producer, cfg.Log)

	catalog := catalogservice.NewResourceCatalog(setupRepo, operatorRepo, cfg)
	availabilityEngine := availabilityservice.NewAvailabilityEngine(catalog, sessionRepo, cfg)
	bookingService := bookingservice.NewBookingService(
		sessionRepo,
		lockRepo,
		availabilityEngine,
		bookingvalidator.NewSessionValidator(cfg.Log),
		publisher,
		cfg,
	)
	marketplaceService := marketplaceservice.NewMarketplaceService(
		applicationRepo,
		sessionRepo,
		publisher,
		cfg,
	)

	state := projection.New(sessionRepo, applicationRepo, operatorRepo, cfg.Log)
	rebuildCtx, cancelRebuild := context.WithTimeout(context.Background(), rebuildTimeout)
	if err := state.Rebuild(rebuildCtx); err != nil {
		cancelRebuild()
		cfg.Log.Fatal("Initial projection rebuild failed", "error", err)
	}
	cancelRebuild()

	feedConsumer, err := projection.NewFeedConsumer(
		kafkaCfg,
		feed.Topic,
		feed.ConsumerGroup,
		feed.DLQTopic,
		state,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create change feed consumer", "error", err)
	}

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	go func() {
		if err := feedConsumer.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Change feed consumer stopped", "error", err)
		}
	}()

	matchEngine := match.NewEngine(state)
	riskEngine := risk.NewEngine(sessionRepo, state, cfg.Log)

	handlers := []contracts.Handler{
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityEngine, cfg.Log),
		marketplacehandler.NewMarketplaceHandler(
			marketplaceService,
			marketplacevalidator.NewApplicationValidator(cfg.Log),
			cfg.Log,
		),
		planninghandler.NewPlanningHandler(state, matchEngine, riskEngine, cfg.Log),
	}

	serverApp := app.NewApplication(cfg)
	serverApp.AddCloser(feedConsumer)
	serverApp.AddCloser(producer)
	serverApp.SetApp(state, handlers...)
	serverApp.Run()
}
