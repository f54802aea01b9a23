package configs

import (
	"log"
	"sync"

	"github.com/spf13/viper"

	"github.com/watchtower-soc/watchtower/pkg/config"
)

var (
	instance Configs
	once     sync.Once
)

// InitConfig loads the application configuration from environment variables
func InitConfig() Configs {
	once.Do(func() {
		config.InitEnv()

		// Bind environment variables to config keys
		// This maps APP_NAME (env) -> app_name (config key)
		if err := viper.Unmarshal(&instance); err != nil {
			log.Fatalf("Failed to unmarshal config from environment: %v", err)
		}

		log.Println("Configuration loaded from environment variables")
	})
	return instance
}

// Instance returns the loaded configuration
func Instance() Configs {
	return instance
}
