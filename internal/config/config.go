package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the harness needs. The negotiation core never reads
// it directly; collaborators are built from it and passed in.
type Config struct {
	BuyerName       string
	Personality     string
	PersonalityFile string
	ScenarioFile    string

	LLMProvider   string
	LLMModel      string
	LLMAPIKey     string
	LLMBaseURL    string
	LLMMaxTokens  int
	LLMTimeoutSec int

	MaxRounds    int
	SellerSeed   int64
	SellerJitter int64

	StateDir          string
	ResumeSessionID   string
	MySQLDSN          string
	MarketPriceSource string

	TelegramBotToken string
	TelegramChatID   string

	LogLevel      string
	LogFile       string
	MaxLogSizeMB  int64
	MaxLogBackups int
}

// secretVars are masked when the .env file is echoed to the log.
var secretVars = map[string]bool{
	"LLM_API_KEY":         true,
	"MYSQL_DSN":           true,
	"TELEGRAM_BOT_TOKEN":  true,
	"APCA_API_KEY_ID":     true,
	"APCA_API_SECRET_KEY": true,
}

// Load reads an optional .env file into the environment and builds the Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	} else {
		printEnvFile()
	}

	return &Config{
		BuyerName:       getEnv("BUYER_NAME", "BuyerBot"),
		Personality:     getEnv("BUYER_PERSONALITY", "Diplomatic-Analytical"),
		PersonalityFile: getEnv("PERSONALITY_FILE", "personality_config.json"),
		ScenarioFile:    getEnv("SCENARIO_FILE", "data/products.json"),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "mock")),
		LLMModel:      getEnv("LLM_MODEL", ""),
		LLMAPIKey:     getEnv("LLM_API_KEY", ""),
		LLMBaseURL:    getEnv("LLM_BASE_URL", ""),
		LLMMaxTokens:  getEnvAsInt("LLM_MAX_TOKENS", 50),
		LLMTimeoutSec: getEnvAsInt("LLM_TIMEOUT_SEC", 15),

		MaxRounds:    getEnvAsInt("MAX_ROUNDS", 10),
		SellerSeed:   getEnvAsInt64("SELLER_SEED", 0),
		SellerJitter: getEnvAsInt64("SELLER_JITTER", 500),

		StateDir:          getEnv("STATE_DIR", ""),
		ResumeSessionID:   getEnv("RESUME_SESSION_ID", ""),
		MySQLDSN:          getEnv("MYSQL_DSN", ""),
		MarketPriceSource: strings.ToLower(getEnv("MARKET_PRICE_SOURCE", "none")),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		LogLevel:      strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		LogFile:       getEnv("LOG_FILE", "negotiation.log"),
		MaxLogSizeMB:  getEnvAsInt64("MAX_LOG_SIZE_MB", 10),
		MaxLogBackups: getEnvAsInt("MAX_LOG_BACKUPS", 3),
	}
}

// Validate reports settings that would make the harness fail later.
func (c *Config) Validate() error {
	if c.MaxRounds < 1 {
		return fmt.Errorf("MAX_ROUNDS must be at least 1, got %d", c.MaxRounds)
	}

	if c.ResumeSessionID != "" && c.StateDir == "" {
		return fmt.Errorf("RESUME_SESSION_ID requires STATE_DIR")
	}

	switch c.LLMProvider {
	case "mock":
	case "openai":
		// A local OpenAI-compatible server needs no key.
		if c.LLMAPIKey == "" && c.LLMBaseURL == "" {
			return fmt.Errorf("LLM_PROVIDER=openai requires LLM_API_KEY or LLM_BASE_URL")
		}
	case "gemini":
		if c.LLMAPIKey == "" {
			return fmt.Errorf("LLM_PROVIDER=gemini requires LLM_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.MarketPriceSource {
	case "none":
	case "alpaca":
		var missing []string
		for _, key := range []string{"APCA_API_KEY_ID", "APCA_API_SECRET_KEY"} {
			if os.Getenv(key) == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("MARKET_PRICE_SOURCE=alpaca: missing environment variables %v", missing)
		}
	default:
		return fmt.Errorf("unsupported MARKET_PRICE_SOURCE %q", c.MarketPriceSource)
	}

	return nil
}

// TelegramEnabled reports whether outcome notifications can be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func printEnvFile() {
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}
	log.Println("--- .env File Variables ---")
	for key, val := range envMap {
		log.Printf("%s=%s", key, maskValue(key, val))
	}
	log.Println("---------------------------")
}

// maskValue shows only the last 4 characters of secret values.
func maskValue(key, val string) string {
	if !secretVars[key] {
		return val
	}
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}
