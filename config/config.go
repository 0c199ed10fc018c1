package config

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full bridge configuration. Everything except the transform
// script is fixed at startup and never re-read.
type Config struct {
	Sungrow    SungrowConfig   `mapstructure:"sungrow"`
	MQTT       MQTTConfig      `mapstructure:"mqtt"`
	Bridge     BridgeConfig    `mapstructure:"bridge"`
	Transform  TransformConfig `mapstructure:"transform"`
	Validators []RangeRule     `mapstructure:"validators"`
	Logger     LoggerConfig    `mapstructure:"logger"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
}

// SungrowConfig describes the inverter to poll.
type SungrowConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// MQTTConfig describes the bus the serialized records are published to.
type MQTTConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	Topic                 string `mapstructure:"topic"`
	ClientID              string `mapstructure:"client_id"`
	Username              string `mapstructure:"username"`
	Password              string `mapstructure:"password"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
}

// BridgeConfig holds the identity and timing of the poll loop.
type BridgeConfig struct {
	SensorID        string `mapstructure:"sensor_id"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	HeartbeatAddr   string `mapstructure:"heartbeat_addr"`
}

// TransformConfig points at an optional JavaScript hook that may adjust the
// polled readings before the payload is built. Inline code wins over a path.
type TransformConfig struct {
	ScriptPath string `mapstructure:"script_path"`
	ScriptCode string `mapstructure:"script_code"`
}

// RangeRule bounds one numeric reading; violations are logged, never fatal.
type RangeRule struct {
	Reading string  `mapstructure:"reading"`
	Min     float64 `mapstructure:"min"`
	Max     float64 `mapstructure:"max"`
}

// LoggerConfig mirrors the logger package settings.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	Console    bool   `mapstructure:"console"`
}

// MetricsConfig holds the prometheus listen address.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ConfigChangeCallback is invoked with the re-read configuration whenever the
// watched config file changes.
type ConfigChangeCallback func(cfg *Config) error

// LoadConfig reads, defaults and validates the configuration at path.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Sungrow.Port == 0 {
		c.Sungrow.Port = 8082
	}
	if c.Sungrow.TimeoutSeconds == 0 {
		c.Sungrow.TimeoutSeconds = 10
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ConnectTimeoutSeconds == 0 {
		c.MQTT.ConnectTimeoutSeconds = 60
	}
	if c.Bridge.IntervalSeconds == 0 {
		c.Bridge.IntervalSeconds = 30
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "INFO"
	}
	if c.Logger.FilePath == "" {
		c.Logger.FilePath = "./logs/bridge.log"
	}
	if c.Logger.MaxSize == 0 {
		c.Logger.MaxSize = 10
	}
	if c.Logger.MaxBackups == 0 {
		c.Logger.MaxBackups = 5
	}
}

func (c *Config) validate() error {
	if c.Sungrow.Host == "" {
		return fmt.Errorf("sungrow.host is required")
	}
	if c.MQTT.Host == "" {
		return fmt.Errorf("mqtt.host is required")
	}
	if c.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic is required")
	}
	if c.Bridge.SensorID == "" {
		return fmt.Errorf("bridge.sensor_id is required")
	}
	if c.Bridge.IntervalSeconds < 0 {
		return fmt.Errorf("bridge.interval_seconds must not be negative")
	}
	for _, r := range c.Validators {
		if r.Reading == "" {
			return fmt.Errorf("validators: reading name is required")
		}
		if r.Min > r.Max {
			return fmt.Errorf("validators: min %f exceeds max %f for %s", r.Min, r.Max, r.Reading)
		}
	}
	return nil
}

// WatchConfig watches the config file and invokes callback on change. The
// bridge surface (device, bus, identity, interval) stays fixed; callers use
// this only to hot-reload the transform script.
func WatchConfig(configPath string, callback ConfigChangeCallback) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	viper.SetConfigFile(absPath)
	viper.WatchConfig()

	// Debounce: editors fire several write events per save.
	var lastChangeTime time.Time
	debounceInterval := 2 * time.Second

	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&fsnotify.Write != fsnotify.Write {
			return
		}
		now := time.Now()
		if now.Sub(lastChangeTime) < debounceInterval {
			return
		}
		lastChangeTime = now

		log.Printf("config file changed: %s", e.Name)

		var newConfig Config
		if err := viper.Unmarshal(&newConfig); err != nil {
			log.Printf("failed to parse updated config: %v", err)
			return
		}
		newConfig.applyDefaults()

		if err := callback(&newConfig); err != nil {
			log.Printf("failed to apply updated config: %v", err)
		}
	})

	return nil
}
