package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// CustomHooks decode log levels, durations and comma separated lists from strings.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		LogLevelHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)),
}

var logLevelType = reflect.TypeOf(log.InfoLevel)

func LogLevelHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != logLevelType {
			return data, nil
		}
		switch from.Kind() {
		case reflect.String:
			level, err := log.ParseLevel(data.(string))
			return level, errors.WithStack(err)
		case reflect.Int, reflect.Int32, reflect.Int64, reflect.Uint32:
			return data, nil
		}
		return nil, errors.Errorf("cannot decode %v into a log level", data)
	}
}
