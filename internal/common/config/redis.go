package config

import (
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

type RedisConfig struct {
	// Either a single address, a cluster seed list or sentinel addresses when MasterName is set.
	Addrs        []string
	DB           int
	Password     string
	MasterName   string
	MaxRetries   int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (rc RedisConfig) AsUniversalOptions() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        rc.Addrs,
		DB:           rc.DB,
		Password:     rc.Password,
		MasterName:   rc.MasterName,
		MaxRetries:   rc.MaxRetries,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	}
}

// NewClient connects to the configured redis deployment and checks that it answers.
func (rc RedisConfig) NewClient() (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(rc.AsUniversalOptions())
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %v", rc.Addrs)
	}
	return client, nil
}
