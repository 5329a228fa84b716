package cmd

import (
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "KEEPBRIEF"

// Runtime settings read from flags and the environment. Pipeline tuning
// lives in config.yml instead.
const (
	keyLogLevel      = "log_level"
	keyOut           = "out"
	keyOpenAIKey     = "openai_api_key"
	keyOpenAIModel   = "openai_model"
	keyTelegramToken = "telegram_bot_token"
	keyTelegramChat  = "telegram_chat_id"
	keyKeepDataPath  = "keep_data_path"
)

// defaultOutDir holds logs and the run archive when --out is not given.
const defaultOutDir = "output"

func initEnv() {
	viper.SetEnvPrefix(envPrefix)
	// e.g. KEEPBRIEF_LOG_LEVEL for log_level
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Credentials and the export path are also read from their unprefixed
	// names.
	_ = viper.BindEnv(keyOpenAIKey, envPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv(keyOpenAIModel, envPrefix+"_OPENAI_MODEL", "OPENAI_MODEL")
	_ = viper.BindEnv(keyTelegramToken, envPrefix+"_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv(keyTelegramChat, envPrefix+"_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	_ = viper.BindEnv(keyKeepDataPath, envPrefix+"_KEEP_DATA_PATH", "KEEP_DATA_PATH")

	viper.SetDefault(keyLogLevel, "INFO")
	viper.SetDefault(keyOut, defaultOutDir)
}

// outDir returns the directory for logs and the run archive.
func outDir() string {
	return viper.GetString(keyOut)
}
