package common

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	commonconfig "github.com/armadaproject/storebench/internal/common/config"
)

const envPrefix = "STOREBENCH"

// BindCommandlineArguments binds every flag of the given set to a viper key. Flags listed in keys are
// bound to the mapped key, the rest to a key of the same name.
func BindCommandlineArguments(flags *pflag.FlagSet, keys map[string]string) {
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok {
			key = f.Name
		}
		if err := viper.BindPFlag(key, f); err != nil {
			log.WithError(err).Warnf("Failed to bind flag %s", f.Name)
		}
	})
}

// LoadConfig reads the optional config file into viper and unmarshals the merged result (defaults,
// file, environment and bound flags) into config. A missing userSpecifiedConfig is an error; running
// without any config file is not.
func LoadConfig(config interface{}, userSpecifiedConfig string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if userSpecifiedConfig != "" {
		viper.SetConfigFile(userSpecifiedConfig)
		if err := viper.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "error reading config file %s", userSpecifiedConfig)
		}
	}

	if err := viper.Unmarshal(config, commonconfig.CustomHooks...); err != nil {
		return errors.Wrap(err, "error unmarshalling config")
	}
	return nil
}

func ConfigureLogging(level log.Level) {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
	log.SetLevel(level)
}
