package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"circles-credit-backend/internal/adapter/ledger"
	"circles-credit-backend/internal/adapter/memberfile"
	"circles-credit-backend/internal/adapter/repository/mysql"
	"circles-credit-backend/internal/adapter/telegram"
	"circles-credit-backend/internal/config"
	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/domain/member"
	"circles-credit-backend/internal/domain/notification"
	"circles-credit-backend/internal/infrastructure/cache"
	"circles-credit-backend/internal/infrastructure/db"
	"circles-credit-backend/internal/usecase/admin"
	"circles-credit-backend/internal/usecase/defaults"
	"circles-credit-backend/internal/usecase/events"
	"circles-credit-backend/internal/usecase/grace"
	loanuc "circles-credit-backend/internal/usecase/loan"
	"circles-credit-backend/internal/usecase/notify"
	"circles-credit-backend/internal/usecase/repayment"
)

// App holds every wired component. Both binaries build one with New.
type App struct {
	Config *config.Config
	Log    *slog.Logger

	Ledger     *ledger.Client
	Writer     loan.Writer
	Dispatcher *notify.Dispatcher
	Members    *mysql.MemberRepository
	Deliveries *mysql.DeliveryRepository

	Defaults   *defaults.Usecase
	Grace      *grace.Usecase
	Repayments *repayment.Usecase
	Events     *events.Usecase
	Admin      *admin.Usecase
	Loans      *loanuc.Usecase

	DB    *gorm.DB
	Redis *redis.Client

	eth *ethclient.Client
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.wire(ctx); err != nil {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) (err error) {
	cfg, log := a.Config, a.Log

	if a.DB, err = db.OpenGorm(cfg.Database.Driver, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err = db.Migrate(a.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if a.Redis, err = cache.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.DB); err != nil {
		return err
	}

	if a.eth, err = ethclient.DialContext(ctx, cfg.Ledger.RPCURL); err != nil {
		return fmt.Errorf("dial ledger rpc: %w", err)
	}
	contract := common.HexToAddress(cfg.Ledger.ContractAddress)
	a.Ledger, err = ledger.NewClient(a.eth, ledger.Options{
		Contract:      contract,
		BlockTag:      cfg.Ledger.BlockTag,
		Confirmations: cfg.Ledger.Confirmations,
		CallTimeout:   cfg.Ledger.CallTimeout,
	}, log)
	if err != nil {
		return err
	}
	if cfg.HasSigner() {
		a.Writer, err = ledger.NewSigner(a.eth, contract, cfg.Ledger.SignerKey, big.NewInt(cfg.Ledger.ChainID), cfg.Ledger.TxTimeout, log)
		if err != nil {
			return err
		}
	} else {
		log.Warn("no signer key configured, ledger writes are disabled")
		a.Writer = ledger.NoSigner{}
	}

	a.Members = mysql.NewMemberRepository(a.DB)
	a.Deliveries = mysql.NewDeliveryRepository(a.DB)
	a.Dispatcher = notify.NewDispatcher(
		channel(cfg.Telegram, log),
		directory(cfg.Members, a.Members),
		notify.NewRenderer(cfg.App.BaseURL),
		cache.NewDeduper(a.Redis),
		a.Deliveries,
		notify.Options{
			FallbackRecipient: cfg.Telegram.FallbackChatID,
			SendTimeout:       cfg.Telegram.SendTimeout,
			DedupeTTL:         cfg.Redis.NotificationDedupeTTL,
		},
		log,
	)

	n := cfg.Ledger.ScanConcurrency
	a.Defaults = defaults.NewUsecase(a.Ledger, a.Writer, a.Dispatcher, n, log)
	a.Grace = grace.NewUsecase(a.Ledger, a.Dispatcher, n, log)
	a.Repayments = repayment.NewUsecase(a.Ledger, ledger.RepayEncoder{Contract: contract}, n, log)
	a.Events = events.NewUsecase(a.Ledger, a.Ledger, ledger.NewCodec(), mysql.NewCursorRepository(a.DB), a.Dispatcher, events.Options{
		Lookback:      cfg.Ledger.EventLookback,
		MaxBlockRange: cfg.Ledger.MaxBlockRange,
	}, log)
	a.Admin = admin.NewUsecase(a.Ledger, a.Writer, log)
	a.Loans = loanuc.NewUsecase(a.Ledger)

	if err = a.Dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("start notifications: %w", err)
	}
	log.Info("app wired",
		"contract", contract.Hex(), "block_tag", cfg.Ledger.BlockTag,
		"db", cfg.Database.Driver, "telegram", cfg.Telegram.BotToken != "")
	return nil
}

func channel(cfg config.TelegramConfig, log *slog.Logger) notification.Channel {
	if cfg.BotToken == "" {
		return notify.NewLogChannel(log)
	}
	return telegram.NewChannel(cfg.BotToken, telegram.Options{APIEndpoint: cfg.APIEndpoint, Timeout: cfg.SendTimeout}, log)
}

func directory(cfg config.MembersConfig, table *mysql.MemberRepository) member.Directory {
	if cfg.FilePath != "" {
		return memberfile.NewDirectory(cfg.FilePath)
	}
	return table
}

// Close releases everything New opened. It is safe on a partly built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Dispatcher != nil {
		errs = append(errs, a.Dispatcher.Close(ctx))
	}
	if a.eth != nil {
		a.eth.Close()
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
