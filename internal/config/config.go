package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Telegram TelegramConfig `yaml:"telegram"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Members  MembersConfig  `yaml:"members"`
	Log      LogConfig      `yaml:"log"`
}

type AppConfig struct {
	Port            string        `yaml:"port"             env:"APP_PORT"             env-default:"8080"`
	BaseURL         string        `yaml:"base_url"         env:"APP_BASE_URL"         env-default:"https://circles.credit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"APP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type LedgerConfig struct {
	RPCURL          string        `yaml:"rpc_url"          env:"LEDGER_RPC_URL"          env-default:"https://rpc.gnosischain.com"`
	ContractAddress string        `yaml:"contract_address" env:"LEDGER_CONTRACT_ADDRESS"`
	ChainID         int64         `yaml:"chain_id"         env:"LEDGER_CHAIN_ID"         env-default:"100"`
	SignerKey       string        `yaml:"signer_key"       env:"LEDGER_SIGNER_KEY"`
	BlockTag        string        `yaml:"block_tag"        env:"LEDGER_BLOCK_TAG"        env-default:"latest"`
	Confirmations   uint64        `yaml:"confirmations"    env:"LEDGER_CONFIRMATIONS"    env-default:"0"`
	CallTimeout     time.Duration `yaml:"call_timeout"     env:"LEDGER_CALL_TIMEOUT"     env-default:"15s"`
	TxTimeout       time.Duration `yaml:"tx_timeout"       env:"LEDGER_TX_TIMEOUT"       env-default:"2m"`
	ScanConcurrency int           `yaml:"scan_concurrency" env:"LEDGER_SCAN_CONCURRENCY" env-default:"8"`
	EventLookback   uint64        `yaml:"event_lookback"   env:"LEDGER_EVENT_LOOKBACK"   env-default:"1000"`
	MaxBlockRange   uint64        `yaml:"max_block_range"  env:"LEDGER_MAX_BLOCK_RANGE"  env-default:"5000"`
}

type TelegramConfig struct {
	// BotToken empty means notifications are only logged.
	BotToken       string        `yaml:"bot_token"        env:"TELEGRAM_BOT_TOKEN"`
	APIEndpoint    string        `yaml:"api_endpoint"     env:"TELEGRAM_API_ENDPOINT"`
	FallbackChatID int64         `yaml:"fallback_chat_id" env:"TELEGRAM_FALLBACK_CHAT_ID"`
	SendTimeout    time.Duration `yaml:"send_timeout"     env:"TELEGRAM_SEND_TIMEOUT"     env-default:"10s"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"      env:"DB_DRIVER"   env-default:"mysql"`
	MySQLHost  string `yaml:"mysql_host"  env:"MYSQL_HOST"  env-default:"mysql"`
	MySQLPort  string `yaml:"mysql_port"  env:"MYSQL_PORT"  env-default:"3306"`
	MySQLDB    string `yaml:"mysql_db"    env:"MYSQL_DB"    env-default:"circles"`
	MySQLUser  string `yaml:"mysql_user"  env:"MYSQL_USER"  env-default:"circles"`
	MySQLPass  string `yaml:"mysql_pass"  env:"MYSQL_PASS"  env-default:"circles"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"circles.db"`
}

type RedisConfig struct {
	Addr                  string        `yaml:"addr"                    env:"REDIS_ADDR"                    env-default:"redis:6379"`
	DB                    int           `yaml:"db"                      env:"REDIS_DB"                      env-default:"0"`
	IdempotencyTTL        time.Duration `yaml:"idempotency_ttl"         env:"IDEMPOTENCY_TTL"               env-default:"5m"`
	NotificationDedupeTTL time.Duration `yaml:"notification_dedupe_ttl" env:"NOTIFICATION_DEDUPE_TTL"       env-default:"24h"`
}

type MembersConfig struct {
	// FilePath selects the JSON member directory over the members table.
	FilePath string `yaml:"file_path" env:"MEMBERS_FILE"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads the file named by CONFIG_PATH when set, then the environment.
// Environment values win over the file.
func Load() (*Config, error) {
	var c Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &c); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func (c *Config) Validate() error {
	if c.Ledger.ContractAddress == "" {
		return errors.New("missing LEDGER_CONTRACT_ADDRESS")
	}
	if !addressRe.MatchString(c.Ledger.ContractAddress) {
		return fmt.Errorf("invalid LEDGER_CONTRACT_ADDRESS %q", c.Ledger.ContractAddress)
	}
	if c.Ledger.SignerKey != "" {
		if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Ledger.SignerKey, "0x")); err != nil {
			return fmt.Errorf("invalid LEDGER_SIGNER_KEY: %w", err)
		}
	}
	switch c.Ledger.BlockTag {
	case "latest", "safe", "finalized":
	default:
		return fmt.Errorf("unsupported LEDGER_BLOCK_TAG %q", c.Ledger.BlockTag)
	}
	if c.Ledger.ScanConcurrency < 1 {
		return fmt.Errorf("LEDGER_SCAN_CONCURRENCY must be positive (got %d)", c.Ledger.ScanConcurrency)
	}
	if c.Ledger.MaxBlockRange == 0 {
		return errors.New("LEDGER_MAX_BLOCK_RANGE must be positive")
	}
	if c.App.Port == "" {
		return errors.New("missing APP_PORT")
	}
	if _, err := net.LookupPort("tcp", c.App.Port); err != nil {
		return fmt.Errorf("invalid APP_PORT %q: %w", c.App.Port, err)
	}

	switch c.Database.Driver {
	case "mysql":
		d := c.Database
		if d.MySQLHost == "" || d.MySQLPort == "" || d.MySQLDB == "" || d.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", d.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", d.MySQLPort, err)
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// HasSigner reports whether privileged writes can be submitted.
func (c *Config) HasSigner() bool { return c.Ledger.SignerKey != "" }

func (d DatabaseConfig) mysqlAddr() string { return net.JoinHostPort(d.MySQLHost, d.MySQLPort) }

func (d DatabaseConfig) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		d.MySQLUser, d.MySQLPass, d.mysqlAddr(), d.MySQLDB)
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	return d.MySQLDSN()
}
