package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lockbox-labs/lockd/internal/core/application"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	alertsmanager "github.com/lockbox-labs/lockd/internal/infrastructure/alertsmanager"
	inmemorybank "github.com/lockbox-labs/lockd/internal/infrastructure/bank/inmemory"
	redisbank "github.com/lockbox-labs/lockd/internal/infrastructure/bank/redis"
	"github.com/lockbox-labs/lockd/internal/infrastructure/db"
	"github.com/lockbox-labs/lockd/internal/infrastructure/metrics"
	timescheduler "github.com/lockbox-labs/lockd/internal/infrastructure/scheduler/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedEventDbs = supportedType{
		"badger":   {},
		"postgres": {},
	}
	supportedDbs = supportedType{
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedBanks = supportedType{
		"inmemory": {},
		"redis":    {},
	}
)

type Config struct {
	Datadir     string
	Port        uint32
	MetricsPort uint32
	LogLevel    int

	Owner      common.Address
	FeePercent uint32
	Custody    common.Address

	DbType              string
	EventDbType         string
	DbDir               string
	DbUrl               string
	EventDbUrl          string
	EventDbDir          string
	BankType            string
	RedisUrl            string
	RedisTxNumOfRetries int
	AlertManagerURL     string
	GenesisFile         string
	NoMaturityScheduler bool

	repo      ports.RepoManager
	bank      ports.AssetService
	scheduler ports.SchedulerService
	alerts    ports.Alerts
	svc       application.Service
	registry  *prometheus.Registry
	metrics   *metrics.LedgerMetrics
}

func (c *Config) String() string {
	clone := *c
	if clone.DbUrl != "" {
		clone.DbUrl = "••••••"
	}
	if clone.EventDbUrl != "" {
		clone.EventDbUrl = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = btcutil.AppDataDir("lockd", false)
	DefaultPort                = 7080
	defaultMetricsPort         = 0 // disabled
	defaultDbType              = "badger"
	defaultEventDbType         = "badger"
	defaultBankType            = "inmemory"
	defaultRedisTxNumOfRetries = 10
	defaultLogLevel            = 4
	defaultFeePercent          = 5
	defaultNoMaturityScheduler = false

	// DefaultCustody holds the deposited funds when no custody address is
	// configured.
	DefaultCustody = common.BytesToAddress(crypto.Keccak256([]byte("lockd/custody"))[12:])
)

// env returns a list of strings prefixed with `LOCKD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("LOCKD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port to listen on for gRPC and JSON requests",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	MetricsPort = &cli.UintFlag{
		Usage: "Port serving prometheus metrics at /metrics, disabled if 0",
		Name:  "metrics-port", EnvVars: env("METRICS_PORT"),
		Value: uint(defaultMetricsPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	Owner = &cli.StringFlag{
		Usage: "Address of the account entitled to withdraw the accrued fees",
		Name:  "owner", EnvVars: env("OWNER"),
	}

	FeePercent = &cli.UintFlag{
		Usage: "Percentage (0-100) of every deposit accrued to the owner, only used on first start",
		Name:  "fee-percent", EnvVars: env("FEE_PERCENT"),
		Value: uint(defaultFeePercent),
	}

	Custody = &cli.StringFlag{
		Usage: "Address holding the deposited funds",
		Name:  "custody-address", EnvVars: env("CUSTODY_ADDRESS"),
		Value: DefaultCustody.Hex(),
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (postgres, sqlite, badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if LOCKD_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	EventDbType = &cli.StringFlag{
		Usage: "Event database type (postgres, badger)",
		Name:  "event-db-type", EnvVars: env("EVENT_DB_TYPE"),
		Value: defaultEventDbType,
	}

	EventDbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if LOCKD_EVENT_DB_TYPE is set to postgres",
		Name:  "pg-event-db-url", EnvVars: env("PG_EVENT_DB_URL"),
	}

	BankType = &cli.StringFlag{
		Usage: "Store of the asset balances (inmemory, redis)",
		Name:  "bank-type", EnvVars: env("BANK_TYPE"),
		Value: defaultBankType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db url if LOCKD_BANK_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for redis balance transactions in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	AlertManagerURL = &cli.StringFlag{
		Usage: "Alertmanager url notified of every fee withdrawal",
		Name:  "alert-manager-url", EnvVars: env("ALERT_MANAGER_URL"),
	}

	GenesisFile = &cli.StringFlag{
		Usage: "Json, yaml or toml file listing the balances minted at start-up",
		Name:  "genesis-file", EnvVars: env("GENESIS_FILE"),
	}

	NoMaturityScheduler = &cli.BoolFlag{
		Usage: "Disable the Matured notifications published when a deposit can be unlocked",
		Name:  "no-maturity-scheduler", EnvVars: env("NO_MATURITY_SCHEDULER"),
		Value: defaultNoMaturityScheduler,
	}
)

var Flags = []cli.Flag{
	Datadir,
	Port,
	MetricsPort,
	LogLevel,
	Owner,
	FeePercent,
	Custody,
	DbType,
	DbUrl,
	EventDbType,
	EventDbUrl,
	BankType,
	RedisUrl,
	RedisTxNumOfRetries,
	AlertManagerURL,
	GenesisFile,
	NoMaturityScheduler,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var eventDbUrl string
	if c.String(EventDbType.Name) == "postgres" {
		eventDbUrl = c.String(EventDbUrl.Name)
		if eventDbUrl == "" {
			return nil, fmt.Errorf("event db type set to 'postgres' but event db url is missing")
		}
	}

	var dbUrl string
	if c.String(DbType.Name) == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(BankType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("bank type set to 'redis' but redis url is missing")
		}
	}

	owner, err := parseAddress(c.String(Owner.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid owner: %s", err)
	}
	custody, err := parseAddress(c.String(Custody.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid custody address: %s", err)
	}

	return &Config{
		Datadir:             c.String(Datadir.Name),
		Port:                uint32(c.Uint(Port.Name)),
		MetricsPort:         uint32(c.Uint(MetricsPort.Name)),
		LogLevel:            c.Int(LogLevel.Name),
		Owner:               owner,
		FeePercent:          uint32(c.Uint(FeePercent.Name)),
		Custody:             custody,
		EventDbType:         c.String(EventDbType.Name),
		DbType:              c.String(DbType.Name),
		DbDir:               dbPath,
		DbUrl:               dbUrl,
		EventDbDir:          dbPath,
		EventDbUrl:          eventDbUrl,
		BankType:            c.String(BankType.Name),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetries.Name),
		AlertManagerURL:     c.String(AlertManagerURL.Name),
		GenesisFile:         c.String(GenesisFile.Name),
		NoMaturityScheduler: c.Bool(NoMaturityScheduler.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func parseAddress(addr string) (common.Address, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return common.Address{}, fmt.Errorf("missing address")
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("%q is not a hex address", addr)
	}
	return common.HexToAddress(addr), nil
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf(
			"event db type not supported, please select one of: %s",
			supportedEventDbs,
		)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedBanks.supports(c.BankType) {
		return fmt.Errorf("bank type not supported, please select one of: %s", supportedBanks)
	}
	if c.Owner == (common.Address{}) {
		return fmt.Errorf("missing owner")
	}
	if c.Custody == (common.Address{}) {
		return fmt.Errorf("custody address must not be the zero address")
	}
	if c.Custody == c.Owner {
		return fmt.Errorf("custody address must differ from the owner")
	}
	if c.FeePercent > 100 {
		return fmt.Errorf("invalid fee percent %d, must be in range [0, 100]", c.FeePercent)
	}
	if c.Port == 0 {
		return fmt.Errorf("missing port")
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		return fmt.Errorf("metrics port must differ from the service port")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.bankService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.alertsService(); err != nil {
		return err
	}
	return c.metricsService()
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) RepoManager() ports.RepoManager {
	return c.repo
}

func (c *Config) BankService() ports.AssetService {
	return c.bank
}

func (c *Config) MetricsRegistry() *prometheus.Registry {
	return c.registry
}

func (c *Config) LedgerMetrics() *metrics.LedgerMetrics {
	return c.metrics
}

func (c *Config) repoManager() error {
	var svc ports.RepoManager
	var err error
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()
	logger.SetLevel(log.GetLevel())

	switch c.EventDbType {
	case "badger":
		eventStoreConfig = []interface{}{c.EventDbDir, logger}
	case "postgres":
		eventStoreConfig = []interface{}{c.EventDbUrl, true}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl, true}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err = db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) bankService() error {
	var svc ports.AssetService
	switch c.BankType {
	case "inmemory":
		svc = inmemorybank.NewBank(c.Custody)
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		svc = redisbank.NewBank(rdb, c.Custody, c.RedisTxNumOfRetries)
	default:
		return fmt.Errorf("unknown bank type")
	}

	if c.GenesisFile != "" {
		balances, err := LoadGenesis(c.GenesisFile)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		minted, err := ApplyGenesis(ctx, svc, balances)
		if err != nil {
			return err
		}
		if minted {
			log.Infof("minted %d genesis balances", len(balances))
		} else {
			log.Info("genesis balances already minted, skipping")
		}
	}

	c.bank = svc
	return nil
}

func (c *Config) schedulerService() error {
	if c.NoMaturityScheduler {
		log.Debug("maturity scheduler disabled")
		return nil
	}
	c.scheduler = timescheduler.NewScheduler()
	return nil
}

func (c *Config) alertsService() error {
	if c.AlertManagerURL == "" {
		return nil
	}

	c.alerts = alertsmanager.NewService(c.AlertManagerURL)
	return nil
}

func (c *Config) metricsService() error {
	if c.repo == nil {
		return fmt.Errorf("repo manager not set")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.registry = registry
	c.metrics = metrics.NewLedgerMetrics(registry, c.repo)
	return nil
}

func (c *Config) appService() error {
	if c.repo == nil || c.bank == nil {
		return fmt.Errorf("config not validated")
	}

	svc, err := application.NewService(c.repo, c.bank, c.scheduler, c.alerts, nil)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
