package config

import (
	"errors"
	"fmt"
	"martinbot/internal/instruments"
	"martinbot/internal/models"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Broker      BrokerConfig
	Bot         BotConfig
	Engine      EngineConfig
	Recorder    RecorderConfig
	Runtime     RuntimeConfig
	Instruments []InstrumentConfig
}

type BrokerConfig struct {
	BaseUrl  string
	ApiKey   string
	Secret   string
	Login    int64
	Password string
	Server   string
	Timeout  time.Duration
}

type BotConfig struct {
	Symbol    string
	Side      string
	Mode      string
	Lot       float64
	MaxSteps  int
	Deviation int
	Magic     int64
	Comment   string
}

type EngineConfig struct {
	PollInterval   time.Duration
	SettleDelay    time.Duration
	RetryDelay     time.Duration
	StepPause      time.Duration
	MonitorTimeout time.Duration
	ExclusiveRuns  bool
	ProgressBuffer int
}

type RecorderConfig struct {
	Type string
	Path string
}

type RuntimeConfig struct {
	DryRun   bool
	HTTPAddr string
	Log      LogConfig
	Paper    PaperConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type PaperConfig struct {
	Mid          float64
	Spread       float64
	Step         float64
	Interval     time.Duration
	ContractSize float64
}

// InstrumentConfig overrides one profile; symbol "*" overrides the fallback.
type InstrumentConfig struct {
	Symbol     string  `mapstructure:"symbol"`
	StopOffset float64 `mapstructure:"stop_offset"`
	TakeOffset float64 `mapstructure:"take_offset"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("broker.timeout", 15*time.Second)

	v.SetDefault("bot.symbol", "XAUUSDm")
	v.SetDefault("bot.side", "BUY")
	v.SetDefault("bot.mode", "MARKET")
	v.SetDefault("bot.lot", 0.01)
	v.SetDefault("bot.max_steps", 4)
	v.SetDefault("bot.deviation", 50)
	v.SetDefault("bot.magic", 123456)
	v.SetDefault("bot.comment", "Auto Martingale")

	v.SetDefault("engine.poll_interval", 500*time.Millisecond)
	v.SetDefault("engine.settle_delay", 500*time.Millisecond)
	v.SetDefault("engine.retry_delay", time.Second)
	v.SetDefault("engine.step_pause", time.Second)
	v.SetDefault("engine.monitor_timeout", 12*time.Hour)
	v.SetDefault("engine.exclusive_runs", true)
	v.SetDefault("engine.progress_buffer", 64)

	v.SetDefault("recorder.type", "csv")
	v.SetDefault("recorder.path", "mt5_orders.csv")

	v.SetDefault("runtime.http_addr", ":8080")
	v.SetDefault("runtime.log.level", "info")
	v.SetDefault("runtime.log.format", "text")
	v.SetDefault("runtime.log.file", "stdout")
	v.SetDefault("runtime.log.max_size", 50)
	v.SetDefault("runtime.log.max_backups", 5)
	v.SetDefault("runtime.log.max_age", 30)
	v.SetDefault("runtime.paper.mid", 2000.0)
	v.SetDefault("runtime.paper.spread", 0.2)
	v.SetDefault("runtime.paper.step", 0.25)
	v.SetDefault("runtime.paper.interval", 200*time.Millisecond)
	v.SetDefault("runtime.paper.contract_size", 100.0)
}

func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, _ := fromViper(v)
	return cfg
}

// Load reads the given file, or configs/config.yaml when path is empty.
// A missing default file is not an error; defaults and MARTINBOT_* env apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MARTINBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Не удалось прочитать конфигурацию: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Broker = BrokerConfig{
		BaseUrl:  v.GetString("broker.base_url"),
		ApiKey:   envSub(v, "broker.api_key"),
		Secret:   envSub(v, "broker.secret"),
		Login:    v.GetInt64("broker.login"),
		Password: envSub(v, "broker.password"),
		Server:   v.GetString("broker.server"),
		Timeout:  v.GetDuration("broker.timeout"),
	}

	cfg.Bot = BotConfig{
		Symbol:    v.GetString("bot.symbol"),
		Side:      v.GetString("bot.side"),
		Mode:      v.GetString("bot.mode"),
		Lot:       v.GetFloat64("bot.lot"),
		MaxSteps:  v.GetInt("bot.max_steps"),
		Deviation: v.GetInt("bot.deviation"),
		Magic:     v.GetInt64("bot.magic"),
		Comment:   v.GetString("bot.comment"),
	}

	cfg.Engine = EngineConfig{
		PollInterval:   v.GetDuration("engine.poll_interval"),
		SettleDelay:    v.GetDuration("engine.settle_delay"),
		RetryDelay:     v.GetDuration("engine.retry_delay"),
		StepPause:      v.GetDuration("engine.step_pause"),
		MonitorTimeout: v.GetDuration("engine.monitor_timeout"),
		ExclusiveRuns:  v.GetBool("engine.exclusive_runs"),
		ProgressBuffer: v.GetInt("engine.progress_buffer"),
	}

	cfg.Recorder = RecorderConfig{
		Type: v.GetString("recorder.type"),
		Path: v.GetString("recorder.path"),
	}

	cfg.Runtime = RuntimeConfig{
		DryRun:   v.GetBool("runtime.dry_run"),
		HTTPAddr: v.GetString("runtime.http_addr"),
		Log: LogConfig{
			Level:      v.GetString("runtime.log.level"),
			Format:     v.GetString("runtime.log.format"),
			File:       v.GetString("runtime.log.file"),
			MaxSize:    v.GetInt("runtime.log.max_size"),
			MaxBackups: v.GetInt("runtime.log.max_backups"),
			MaxAge:     v.GetInt("runtime.log.max_age"),
			Compress:   v.GetBool("runtime.log.compress"),
		},
		Paper: PaperConfig{
			Mid:          v.GetFloat64("runtime.paper.mid"),
			Spread:       v.GetFloat64("runtime.paper.spread"),
			Step:         v.GetFloat64("runtime.paper.step"),
			Interval:     v.GetDuration("runtime.paper.interval"),
			ContractSize: v.GetFloat64("runtime.paper.contract_size"),
		},
	}

	if err := v.UnmarshalKey("instruments", &cfg.Instruments); err != nil {
		return nil, fmt.Errorf("Некорректный список инструментов: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case !c.Runtime.DryRun && c.Broker.BaseUrl == "":
		return errors.New("broker.base_url обязателен вне режима dry_run")
	case c.Bot.Lot <= 0:
		return errors.New("bot.lot должен быть положительным")
	case c.Bot.MaxSteps < 1:
		return errors.New("bot.max_steps должен быть не меньше 1")
	case c.Bot.Deviation < 0:
		return errors.New("bot.deviation не может быть отрицательным")
	case c.Engine.PollInterval <= 0:
		return errors.New("engine.poll_interval должен быть положительным")
	case c.Engine.MonitorTimeout < 0:
		return errors.New("engine.monitor_timeout не может быть отрицательным")
	case c.Recorder.Path == "":
		return errors.New("recorder.path обязателен")
	}
	if _, err := models.ParseSide(c.Bot.Side); err != nil {
		return fmt.Errorf("bot.side: %w", err)
	}
	for _, inst := range c.Instruments {
		if inst.Symbol == "" {
			return errors.New("instruments: symbol обязателен")
		}
		if inst.StopOffset <= 0 || inst.TakeOffset <= 0 {
			return fmt.Errorf("instruments.%s: смещения должны быть положительными", inst.Symbol)
		}
	}
	return nil
}

// ProfileTable builds the instrument table with configured overrides applied.
func (c *Config) ProfileTable() *instruments.Table {
	overrides := make([]instruments.Profile, 0, len(c.Instruments))
	for _, inst := range c.Instruments {
		symbol := inst.Symbol
		if symbol == "*" {
			symbol = ""
		}
		overrides = append(overrides, instruments.Profile{
			Instrument: symbol,
			StopOffset: decimal.NewFromFloat(inst.StopOffset),
			TakeOffset: decimal.NewFromFloat(inst.TakeOffset),
		})
	}
	return instruments.NewTable(overrides...)
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

func envSub(v *viper.Viper, key string) string {
	val := v.GetString(key)
	if val == "" {
		return ""
	}

	return envPattern.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
