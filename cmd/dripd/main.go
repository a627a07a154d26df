package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-pg/pg"
	"github.com/joho/godotenv"
	mg "github.com/mailgun/mailgun-go/v3"
	"github.com/sirupsen/logrus"

	"github.com/interactive-solutions/go-drip"
	"github.com/interactive-solutions/go-drip/provider/mailgun"
	"github.com/interactive-solutions/go-drip/provider/relay"
	"github.com/interactive-solutions/go-drip/provider/ses"
	gopg "github.com/interactive-solutions/go-drip/storage/go-pg"
)

func main() {
	logger := logrus.New()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on process environment")
	}

	db := pg.Connect(&pg.Options{
		Addr:     getenv("PG_ADDR", "localhost:5432"),
		User:     getenv("PG_USER", "drip"),
		Password: os.Getenv("PG_PASSWORD"),
		Database: getenv("PG_DATABASE", "drip"),
	})
	defer db.Close()

	transport, err := newTransport()
	if err != nil {
		logger.WithError(err).Fatal("failed to configure mail transport")
	}

	engine, err := drip.NewEngine(
		drip.SetLogger(logger),
		drip.SetCampaignRepo(gopg.NewCampaignRepository(db)),
		drip.SetContactRepo(gopg.NewContactRepository(db)),
		drip.SetFollowUpRepo(gopg.NewFollowUpRepository(db)),
		drip.SetDeliveryLogRepo(gopg.NewDeliveryLogRepository(db)),
		drip.SetJobRepo(gopg.NewJobRepository(db)),
		drip.SetTransport(transport),
		drip.SetDefaultFrom(os.Getenv("FROM_EMAIL")),
		drip.SetDefaultReplyTo(os.Getenv("REPLY_TO")),
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to configure engine")
	}

	if err := engine.Start(); err != nil {
		logger.WithError(err).Fatal("failed to start engine")
	}

	server := &http.Server{
		Addr:    ":" + getenv("PORT", "8080"),
		Handler: engine.HttpHandler().Router(),
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("http shutdown failed")
	}

	engine.Shutdown(ctx)
}

func newTransport() (drip.MailTransport, error) {
	switch getenv("MAIL_PROVIDER", "mailgun") {
	case "ses":
		return ses.NewSesTransport(session.Must(session.NewSession())), nil

	case "relay":
		return relay.NewRelayTransport(
			os.Getenv("RELAY_URL"),
			os.Getenv("RELAY_USERNAME"),
			os.Getenv("RELAY_PASSWORD"),
		), nil

	default:
		client := mg.NewMailgun(os.Getenv("MAILGUN_DOMAIN"), os.Getenv("MAILGUN_API_KEY"))

		return mailgun.NewMailgunTransport(client, mailgun.SetFrom(os.Getenv("FROM_EMAIL"))), nil
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
