package config

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var envOnce sync.Once

// InitEnv binds viper to the process environment. Every config consumer may
// call it; only the first call does anything.
func InitEnv() {
	envOnce.Do(func() {
		viper.AutomaticEnv()
		log.Info().Msg("Environment bindings initialized")
	})
}
