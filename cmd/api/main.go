package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rabbitmq/amqp091-go"

	"receiptz.org/internal/auth"
	"receiptz.org/internal/httpapi"
	"receiptz.org/internal/mail"
	"receiptz.org/internal/notify"
	"receiptz.org/internal/obs"
	"receiptz.org/internal/organization"
	"receiptz.org/internal/receipt"
	"receiptz.org/internal/user"
)

var version = "1.0.0"

func main() {
	obs.Init()

	// Database (optional; in-memory stores otherwise, and /readyz pings it)
	var db *sql.DB
	if dsn := os.Getenv("RECEIPTZ_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Authentication: missing secret or unknown strategy aborts startup.
	dispatcher, err := auth.NewDispatcher(auth.Options{
		Secret:       os.Getenv("RECEIPTZ_AUTH_SECRET"),
		Keys:         parseAPIKeys(os.Getenv("RECEIPTZ_API_KEYS")),
		CodecOptions: codecOptions(),
	})
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	strategyName := os.Getenv("RECEIPTZ_AUTH_STRATEGY")
	if strategyName == "" {
		strategyName = auth.StrategyToken
	}
	strategy, err := dispatcher.Build(strategyName)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	// Stores
	var (
		userStore    user.Store
		orgStore     organization.Store
		receiptStore receipt.Store
	)
	if db != nil {
		userStore = user.NewPostgresStore(db)
		orgStore = organization.NewPostgresStore(db)
		receiptStore = receipt.NewPostgresStore(db)
	} else {
		userStore = user.NewMemoryStore()
		orgStore = organization.NewMemoryStore()
		receiptStore = receipt.NewMemoryStore()
	}

	// Outbound email
	var mailer mail.Mailer = mail.LogMailer{}
	if host := os.Getenv("RECEIPTZ_SMTP_HOST"); host != "" {
		port, _ := strconv.Atoi(os.Getenv("RECEIPTZ_SMTP_PORT"))
		m, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     host,
			Port:     port,
			Username: os.Getenv("RECEIPTZ_SMTP_USERNAME"),
			Password: os.Getenv("RECEIPTZ_SMTP_PASSWORD"),
			From:     os.Getenv("RECEIPTZ_SMTP_FROM"),
		})
		if err != nil {
			log.Fatalf("mail: %v", err)
		}
		mailer = m
	}

	// Push notifications
	var notifier notify.Notifier = notify.Nop{}
	var amqpConn *amqp091.Connection
	if url := os.Getenv("RECEIPTZ_AMQP_URL"); url != "" {
		amqpConn, err = amqp091.Dial(url)
		if err != nil {
			log.Fatalf("amqp: dial: %v", err)
		}
		ch, err := amqpConn.Channel()
		if err != nil {
			log.Fatalf("amqp: channel: %v", err)
		}
		exchange := os.Getenv("RECEIPTZ_AMQP_EXCHANGE")
		routingKey := os.Getenv("RECEIPTZ_AMQP_ROUTING_KEY")
		if routingKey == "" {
			routingKey = "receipt.notification"
		}
		notifier, err = notify.NewAMQPNotifier(ch, exchange, routingKey)
		if err != nil {
			log.Fatalf("amqp: %v", err)
		}
	}

	// Services
	userOpts := []user.Option{
		user.WithLinks(os.Getenv("RECEIPTZ_VERIFY_LINK"), os.Getenv("RECEIPTZ_RESET_LINK")),
	}
	if ttl := envDuration("RECEIPTZ_SINGLE_USE_TOKEN_TTL"); ttl > 0 {
		userOpts = append(userOpts, user.WithSingleUseTokenTTL(ttl))
	}
	userSvc := user.NewService(userStore, dispatcher.Codec(), mailer, userOpts...)
	orgSvc := organization.NewService(orgStore, userSvc)
	receiptSvc := receipt.NewService(receiptStore, orgSvc, userSvc, notifier)

	api := httpapi.New(httpapi.Config{
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
		Strategy:   strategy,
		Users:      userSvc,
		Orgs:       orgSvc,
		Receipts:   receiptSvc,
	})

	addr := os.Getenv("RECEIPTZ_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting receiptz-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if amqpConn != nil {
		_ = amqpConn.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func codecOptions() []auth.CodecOption {
	var opts []auth.CodecOption
	if ttl := envDuration("RECEIPTZ_TOKEN_TTL"); ttl > 0 {
		opts = append(opts, auth.WithTTL(ttl))
	}
	return opts
}

func envDuration(name string) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	return d
}

// parseAPIKeys reads "key=userID:orgID:role" pairs separated by commas.
// Entries without an org bind a service principal acting as an individual.
func parseAPIKeys(raw string) map[string]auth.Context {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	keys := make(map[string]auth.Context)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, principal, ok := strings.Cut(entry, "=")
		if !ok {
			log.Fatalf("RECEIPTZ_API_KEYS: malformed entry %q", entry)
		}
		parts := strings.Split(principal, ":")
		if len(parts) != 3 || parts[0] == "" {
			log.Fatalf("RECEIPTZ_API_KEYS: malformed principal in %q", entry)
		}
		role := auth.Role(parts[2])
		if role != auth.RoleIndividual && role != auth.RoleStaff {
			log.Fatalf("RECEIPTZ_API_KEYS: unknown role %q", parts[2])
		}
		keys[key] = auth.Context{UserID: parts[0], OrgID: parts[1], Role: role}
	}
	return keys
}
