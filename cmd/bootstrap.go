package cmd

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/internal/usecase"
	"artisan-marketplace/internal/wire"
	"artisan-marketplace/pkg/database"
	"artisan-marketplace/pkg/gateway"
	"artisan-marketplace/pkg/lock"
	"artisan-marketplace/pkg/mailer"
	"artisan-marketplace/pkg/metrics"
	"artisan-marketplace/pkg/mq"

	"go.uber.org/zap"
)

// runtime holds the process-wide dependencies shared by every command.
type runtime struct {
	app     *wire.App
	closers []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// bootstrap connects the database and the optional integrations. Redis,
// RabbitMQ and SMTP are skipped when not configured or unreachable.
func bootstrap(ctx context.Context) (*runtime, error) {
	rt := &runtime{}

	db, err := database.InitDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt.closers = append(rt.closers, db.Close)
	logger.Info("Database connected successfully")

	deps := usecase.Deps{
		Gateway: gateway.NewStripeGateway(config.Stripe, logger),
		Metrics: metrics.New(),
	}

	if config.Redis.Addr != "" {
		client, err := lock.NewRedisClient(ctx, config.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, payment confirmation runs without distributed lock", zap.Error(err))
		} else {
			deps.Locker = lock.NewLocker(client)
			rt.closers = append(rt.closers, func() { _ = client.Close() })
		}
	}

	if config.RabbitMQ.URL != "" {
		publisher, err := mq.NewPublisher(config.RabbitMQ.URL, config.RabbitMQ.Exchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, notification events disabled", zap.Error(err))
		} else {
			deps.Publisher = publisher
			rt.closers = append(rt.closers, func() { _ = publisher.Close() })
		}
	}

	if config.Email.Host != "" {
		deps.Mailer = mailer.New(config.Email, config.App.Name)
	}

	repos := repository.NewRepository(db, logger)
	rt.app = wire.Wiring(repos, config, logger, deps)

	// Registered last so queued notifications drain before connections close.
	rt.app.Service.Dispatcher.Start()
	rt.closers = append(rt.closers, rt.app.Service.Dispatcher.Stop)

	return rt, nil
}
