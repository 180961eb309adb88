package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	// Embedded zone database so Asia/Ho_Chi_Minh resolves in minimal containers.
	_ "time/tzdata"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	ALLMProvider string // Provider identifier: zai, deepseek, openai, siliconflow, dashscope, openrouter, ollama
	ALLMAPIKey   string
	ALLMBaseURL  string
	ALLMModel    string
	ALLMTimeout  int // LLM request timeout in seconds (default: 60)

	// Chat transport
	TelegramToken string

	// MongoDB driver
	MongoURI      string
	MongoDatabase string

	// Scheduling
	Timezone            string // IANA zone used for dates and cron specs
	WeeklyDigestCron    string
	InvestmentCheckCron string
	ReminderTickSeconds int

	PriceFeedURL string
	LogLevel     string

	Mode      string
	DSN       string
	Driver    string
	Version   string
	Addr      string
	Data      string
	Port      int
	AIEnabled bool
}

// Provider default configurations for LLM.
// Used when the base URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

// Drivers lists the supported store drivers.
var Drivers = []string{"mongo", "sqlite", "postgres", "memory"}

const (
	DefaultTimezone            = "Asia/Ho_Chi_Minh"
	DefaultWeeklyDigestCron    = "0 8 * * 1"
	DefaultInvestmentCheckCron = "0 9 * * *"
	DefaultPriceFeedURL        = "https://query1.finance.yahoo.com"
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.ALLMAPIKey != ""
}

// Location resolves the configured timezone, falling back to UTC+7.
func (p *Profile) Location() *time.Location {
	name := p.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown timezone, using fixed UTC+7", "timezone", name, "error", err)
		return time.FixedZone("ICT", 7*3600)
	}
	return loc
}

// ReminderTick returns the scheduler tick interval.
func (p *Profile) ReminderTick() time.Duration {
	if p.ReminderTickSeconds <= 0 {
		return time.Second
	}
	return time.Duration(p.ReminderTickSeconds) * time.Second
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.ALLMProvider = getEnvOrDefault("FINSENSE_AI_LLM_PROVIDER", "deepseek")
	p.ALLMAPIKey = getEnvOrDefault("FINSENSE_AI_LLM_API_KEY", "")
	p.ALLMBaseURL = getEnvOrDefault("FINSENSE_AI_LLM_BASE_URL", "")
	p.ALLMModel = getEnvOrDefault("FINSENSE_AI_LLM_MODEL", "")
	p.ALLMTimeout = getEnvOrDefaultInt("FINSENSE_AI_LLM_TIMEOUT_SECONDS", 60)

	// AI is enabled if API key is configured
	p.AIEnabled = p.ALLMAPIKey != ""

	if p.ALLMProvider != "" {
		if _, ok := llmProviderDefaults[p.ALLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: deepseek", "provider", p.ALLMProvider)
			p.ALLMProvider = "deepseek"
		}
	}
	if defaults, ok := llmProviderDefaults[p.ALLMProvider]; ok {
		if p.ALLMBaseURL == "" {
			p.ALLMBaseURL = defaults.BaseURL
		}
		if p.ALLMModel == "" {
			p.ALLMModel = defaults.Model
		}
	}

	p.TelegramToken = getEnvOrDefault("FINSENSE_TELEGRAM_TOKEN", os.Getenv("TELEGRAM_TOKEN"))
	p.MongoURI = getEnvOrDefault("FINSENSE_MONGO_URI", os.Getenv("MONGO_URI"))
	p.MongoDatabase = getEnvOrDefault("FINSENSE_MONGO_DATABASE", "finance_bot")

	p.Timezone = getEnvOrDefault("FINSENSE_TIMEZONE", DefaultTimezone)
	p.WeeklyDigestCron = getEnvOrDefault("FINSENSE_WEEKLY_DIGEST_CRON", DefaultWeeklyDigestCron)
	p.InvestmentCheckCron = getEnvOrDefault("FINSENSE_INVESTMENT_CHECK_CRON", DefaultInvestmentCheckCron)
	p.ReminderTickSeconds = getEnvOrDefaultInt("FINSENSE_REMINDER_TICK_SECONDS", 1)

	p.PriceFeedURL = getEnvOrDefault("FINSENSE_PRICE_FEED_URL", DefaultPriceFeedURL)
	p.LogLevel = getEnvOrDefault("FINSENSE_LOG_LEVEL", "info")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	valid := false
	for _, d := range Drivers {
		if p.Driver == d {
			valid = true
			break
		}
	}
	if !valid {
		return errors.Errorf("unsupported driver %q, want one of %s", p.Driver, strings.Join(Drivers, ", "))
	}

	if p.Driver == "mongo" && p.MongoURI == "" {
		return errors.New("mongo driver requires FINSENSE_MONGO_URI")
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a dsn")
	}
	if p.Driver != "sqlite" {
		return nil
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "finsense")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/finsense"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("finsense_%s.db", p.Mode))
	}
	return nil
}
