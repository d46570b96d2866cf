package main // Entry point package

import (
	"log"  // Logging library
	"time" // TTL conversions

	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/mail"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	queuepublisher "github.com/iliyamo/auth-service/internal/service"
)

func main() {
	// Load .env if present; real deployments set the variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	// Redis backs the one-time reset codes and the rate limiter. A nil
	// client disables rate limiting but the OTP store requires Redis, so
	// a missing server is fatal here.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed; the reset-code store requires Redis")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	codes := repository.NewOTPRepo(rdb)

	// Outbound mail: direct SMTP, broker-backed, or log-only when no
	// relay is configured.
	var mailer auth.Mailer
	smtpMailer := mail.Mailer(mail.LogMailer{})
	if cfg.SMTPAddr != "" {
		smtpMailer = mail.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass)
	}
	if cfg.MailViaQueue {
		mailer = queuepublisher.EmailPublisher{}
		go func() {
			if err := queue.StartEmailConsumer(smtpMailer); err != nil {
				log.Printf("email consumer stopped: %v", err)
			}
		}()
	} else {
		mailer = smtpMailer
	}

	engine := auth.NewEngine(users, tokens, codes, mailer, auth.Config{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		BcryptCost: cfg.BcryptCost,
		OTPTTL:     time.Duration(cfg.OTPTTLMin) * time.Minute,
	})

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(engine), engine, rdb, config.LoadRateLimitConfig())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
