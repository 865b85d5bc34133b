package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Logger   Logger
	Worker   WorkerConfig
	Tools    ToolsConfig
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
}

type WorkerConfig struct {
	QueueBackend      string
	WorkerCount       int
	QueueDepth        int
	JobParallelism    int
	MaxCPUUsage       float64
	RetentionMinutes  int
	SweepIntervalSecs int
}

type ToolsConfig struct {
	DownloaderBin         string
	DownloaderTimeoutSecs int
	DownloaderRetries     int
	TranscoderBin         string
	ProbeBin              string
	TranscodeTimeoutSecs  int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	UseTLS        bool
}

type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	InputBucket  string
	OutputBucket string
	CDNBase      string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

func (w WorkerConfig) Retention() time.Duration {
	return time.Duration(w.RetentionMinutes) * time.Minute
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(w.SweepIntervalSecs) * time.Second
}

func (t ToolsConfig) DownloaderTimeout() time.Duration {
	return time.Duration(t.DownloaderTimeoutSecs) * time.Second
}

func (t ToolsConfig) TranscodeTimeout() time.Duration {
	return time.Duration(t.TranscodeTimeoutSecs) * time.Second
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.Is(err, configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Worker.QueueBackend == "" {
		c.Worker.QueueBackend = "memory"
	}
	if c.S3.CDNBase == "" && c.S3.Endpoint != "" {
		c.S3.CDNBase = c.S3.Endpoint + "/" + c.S3.OutputBucket
	}
	if c.Worker.WorkerCount <= 0 {
		c.Worker.WorkerCount = 4
	}
	if c.Worker.QueueDepth <= 0 {
		c.Worker.QueueDepth = 64
	}
	if c.Worker.JobParallelism <= 0 || c.Worker.JobParallelism > 8 {
		c.Worker.JobParallelism = 8
	}
	if c.Worker.MaxCPUUsage <= 0 {
		c.Worker.MaxCPUUsage = 80.0
	}
	if c.Worker.RetentionMinutes <= 0 {
		c.Worker.RetentionMinutes = 60
	}
	if c.Worker.SweepIntervalSecs <= 0 {
		c.Worker.SweepIntervalSecs = 60
	}
	if c.Tools.DownloaderBin == "" {
		c.Tools.DownloaderBin = "yt-dlp"
	}
	if c.Tools.DownloaderTimeoutSecs <= 0 {
		c.Tools.DownloaderTimeoutSecs = 30
	}
	if c.Tools.DownloaderRetries <= 0 {
		c.Tools.DownloaderRetries = 3
	}
	if c.Tools.TranscoderBin == "" {
		c.Tools.TranscoderBin = "ffmpeg"
	}
	if c.Tools.ProbeBin == "" {
		c.Tools.ProbeBin = "ffprobe"
	}
	if c.Tools.TranscodeTimeoutSecs <= 0 {
		c.Tools.TranscodeTimeoutSecs = 300
	}
}
