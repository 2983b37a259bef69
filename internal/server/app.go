// Package server wires configuration, storage, mail and locking into the
// authentication and voucher services and runs the gRPC endpoint until a
// termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/logging"
	"github.com/dmitrijs2005/paydesk/internal/server/accountstate"
	"github.com/dmitrijs2005/paydesk/internal/server/auth"
	"github.com/dmitrijs2005/paydesk/internal/server/config"
	"github.com/dmitrijs2005/paydesk/internal/server/locks"
	"github.com/dmitrijs2005/paydesk/internal/server/notify"
	"github.com/dmitrijs2005/paydesk/internal/server/password"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/paydesk/internal/server/services"
	"github.com/dmitrijs2005/paydesk/internal/server/storage"
	"github.com/dmitrijs2005/paydesk/internal/timex"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/paydesk/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	purgeInterval    = time.Hour
	mailQueueSize    = 256
	mailSendTimeout  = 30 * time.Second
	redisPingTimeout = 3 * time.Second
)

type App struct {
	config         *config.Config
	logger         *logging.ZapLogger
	db             *sql.DB
	redis          *redis.Client
	mail           *notify.Dispatcher
	tokens         *auth.TokenService
	authService    *services.AuthService
	voucherService *services.VoucherService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(logging.Config{Level: c.LogLevel, Dev: c.LogDev})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, storage.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("artifact store init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	locker, err := app.newLocker(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	})
	app.mail = notify.NewDispatcher(notify.NewEmailSender(mailer), mailQueueSize, mailSendTimeout, logger)

	clock := timex.SystemClock{}
	app.tokens = auth.NewTokenService([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, clock)
	machine := accountstate.New(clock, accountstate.Policy{
		Threshold:                     c.LockoutThreshold,
		LockoutDuration:               c.LockoutDuration,
		ResetTokenTTL:                 c.ResetTokenValidityDuration,
		BlockWithoutExpiryIsPermanent: c.PermanentBlockWithoutExpiry,
	})

	app.authService = services.NewAuthService(db, rm, services.AuthDeps{
		Tokens:  app.tokens,
		Hasher:  password.BcryptHasher{},
		Machine: machine,
		Sender:  app.mail,
		Locker:  locker,
		Clock:   clock,
		Log:     logger,
	})
	app.voucherService = services.NewVoucherService(db, rm, store, clock, logger)

	return app, nil
}

// newLocker picks the Redis lock when an address is configured and the
// in-process keyed mutex otherwise.
func (app *App) newLocker(ctx context.Context) (locks.Locker, error) {
	if app.config.RedisAddr == "" {
		app.logger.Info(ctx, "Using in-process account locks")
		return locks.NewKeyedMutex(), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}

	app.redis = rdb
	app.logger.Info(ctx, "Using redis account locks", "address", app.config.RedisAddr)
	return locks.NewRedisLocker(rdb, locks.RedisConfig{}, app.logger), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.voucherService, app.tokens)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeRefreshTokens sweeps expired refresh tokens at start and then hourly.
func (app *App) purgeRefreshTokens(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		if _, err := app.authService.PurgeExpiredRefreshTokens(ctx); err != nil {
			app.logger.Warn(ctx, "refresh token purge failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (app *App) close(ctx context.Context) {
	app.mail.Close()
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	_ = app.logger.Sync()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeRefreshTokens(ctx)
	}()

	wg.Wait()

	app.close(context.Background())
}
