package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hooked struct {
	Level   log.Level
	Timeout time.Duration
	Addrs   []string
}

func TestCustomHooks(t *testing.T) {
	v := viper.New()
	v.Set("level", "debug")
	v.Set("timeout", "1m30s")
	v.Set("addrs", "a:6379,b:6379")

	var out hooked
	require.NoError(t, v.Unmarshal(&out, CustomHooks...))
	assert.Equal(t, log.DebugLevel, out.Level)
	assert.Equal(t, 90*time.Second, out.Timeout)
	assert.Equal(t, []string{"a:6379", "b:6379"}, out.Addrs)
}

func TestCustomHooks_InvalidLevel(t *testing.T) {
	v := viper.New()
	v.Set("level", "loud")

	var out hooked
	assert.Error(t, v.Unmarshal(&out, CustomHooks...))
}
