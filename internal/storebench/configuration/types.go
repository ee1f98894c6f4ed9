package configuration

import (
	"time"

	log "github.com/sirupsen/logrus"

	commonconfig "github.com/armadaproject/storebench/internal/common/config"
)

type StorebenchConfig struct {
	Logging   LoggingConfig
	Redis     commonconfig.RedisConfig
	Tubes     TubesConfig
	Master    MasterConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	ResultLog ResultLogConfig
}

type LoggingConfig struct {
	Level log.Level
}

type TubesConfig struct {
	// Prefix of every redis key the queue touches.
	KeyPrefix  string        `validate:"required"`
	StatsTube  string        `validate:"required"`
	WorkPrefix string        `validate:"required"`
	// TimeToRun bounds a reservation. Jobs held longer are handed out again.
	TimeToRun  time.Duration `validate:"gt=0"`
}

type MasterConfig struct {
	SetupTimeout  time.Duration `validate:"gt=0"`
	ResultTimeout time.Duration `validate:"gt=0"`
	Percentile    float64       `validate:"gt=0,lte=100"`
	// Maximum number of outstanding work jobs. Zero means four per user.
	Window           int `validate:"gte=0"`
	Cleanup          bool
	DeleteContainers bool
	ProgressEvery    int `validate:"gte=0"`
}

type WorkerConfig struct {
	// Defaults to the host name followed by a ULID.
	WorkerId       string
	Concurrency    int `validate:"gt=0"`
	MaxRetries     uint
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	BatchSize      int           `validate:"gt=0"`
	BatchTimeout   time.Duration `validate:"gt=0"`
	ReserveTimeout time.Duration `validate:"gt=0"`
	// Zero disables the metrics endpoint.
	MetricsPort uint16
}

type StorageConfig struct {
	Type            string `validate:"oneof=s3 memory"`
	Endpoint        string
	Region          string
	AccessKeyId     string
	SecretAccessKey string
	ContainerPrefix string
	UsePathStyle    bool
	// Artificial latency added to every memory store operation.
	MemoryLatency time.Duration
}

type ResultLogConfig struct {
	FlushThreshold int `validate:"gt=0"`
}
