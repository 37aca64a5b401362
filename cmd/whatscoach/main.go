package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"whatscoach/internal/api"
	"whatscoach/internal/directory"
	"whatscoach/internal/genai"
	"whatscoach/internal/messaging"
	"whatscoach/internal/util"
	"whatscoach/internal/whatsapp"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	dirOpts := buildDirectoryOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	msgOpts := buildMessagingOptions(flags)
	waOpts := buildWhatsAppOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping WhatsApp coach service")
	slog.Debug("Module options counts", "directory", len(dirOpts), "genai", len(genaiOpts), "messaging", len(msgOpts), "whatsapp", len(waOpts), "api", len(apiOpts))
	if err := api.Run(dirOpts, genaiOpts, msgOpts, waOpts, apiOpts); err != nil {
		slog.Error("Coach service failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Coach service exited successfully")
}

// Config holds environment configuration
type Config struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	OpenAIKey        string
	DatabaseURL      string
	// DatabaseAuthToken is reserved for hosted SQL backends that separate
	// the token from the URL. The current stores authenticate via the DSN,
	// so it is read and logged but not forwarded.
	DatabaseAuthToken string
	WhatsAppDSN       string
	APIAddr           string
}

// Flags holds command line flag values
type Flags struct {
	dbDSN       *string
	openaiKey   *string
	twilioFrom  *string
	waDSN       *string
	qrOutput    *string
	numeric     *bool
	apiAddr     *string
	accountSID  string
	authToken   string
}

// initializeLogger sets up structured logging. DEBUG=true enables debug level.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:        os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DatabaseAuthToken: os.Getenv("DATABASE_AUTH_TOKEN"),
		WhatsAppDSN:       os.Getenv("WHATSAPP_DB_DSN"),
		APIAddr:           os.Getenv("API_ADDR"),
	}

	slog.Debug("environment variables loaded",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"TWILIO_AUTH_TOKEN_SET", config.TwilioAuthToken != "",
		"TWILIO_WHATSAPP_NUMBER_SET", config.TwilioFrom != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"DATABASE_AUTH_TOKEN_SET", config.DatabaseAuthToken != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:      flag.String("db-dsn", config.DatabaseURL, "user directory DSN, Postgres URL or SQLite path (overrides $DATABASE_URL)"),
		openaiKey:  flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		twilioFrom: flag.String("twilio-from", config.TwilioFrom, "Twilio WhatsApp sending address (overrides $TWILIO_WHATSAPP_NUMBER)"),
		waDSN:      flag.String("wa-db-dsn", config.WhatsAppDSN, "native WhatsApp device store DSN (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:   flag.String("qr-output", "", "path to write the native WhatsApp login QR code"),
		numeric:    flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		apiAddr:    flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		accountSID: config.TwilioAccountSID,
		authToken:  config.TwilioAuthToken,
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKey_set", *flags.openaiKey != "",
		"twilioFrom_set", *flags.twilioFrom != "",
		"waDSN_set", *flags.waDSN != "",
		"apiAddr", *flags.apiAddr)

	return flags
}

// buildDirectoryOptions constructs user directory configuration options
func buildDirectoryOptions(flags Flags) []directory.Option {
	var opts []directory.Option
	if *flags.dbDSN != "" {
		opts = append(opts, directory.WithDSN(*flags.dbDSN))
	}
	return opts
}

// buildGenAIOptions constructs completion client configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	return opts
}

// buildMessagingOptions constructs Twilio configuration options
func buildMessagingOptions(flags Flags) []messaging.Option {
	var opts []messaging.Option
	if flags.accountSID != "" {
		opts = append(opts, messaging.WithAccountSID(flags.accountSID))
	}
	if flags.authToken != "" {
		opts = append(opts, messaging.WithAuthToken(flags.authToken))
	}
	if *flags.twilioFrom != "" {
		opts = append(opts, messaging.WithFrom(*flags.twilioFrom))
	}
	return opts
}

// buildWhatsAppOptions constructs native transport configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var opts []whatsapp.Option
	if *flags.waDSN != "" {
		opts = append(opts, whatsapp.WithDBDSN(*flags.waDSN))
	}
	if *flags.qrOutput != "" {
		opts = append(opts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		opts = append(opts, whatsapp.WithNumericCode())
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	return opts
}
