package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/samsungplay/CS559-IP3/internal/world"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера мира
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Fluid     FluidConfig     `yaml:"fluid"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type WorldConfig struct {
	Seed         int64   `yaml:"seed"`
	Radius       int     `yaml:"radius"` // радиус стартовой области в чанках
	SeaLevel     int     `yaml:"sea_level"`
	Flat         bool    `yaml:"flat"`
	FlatHeight   int     `yaml:"flat_height"`
	TickRate     int     `yaml:"tick_rate"` // тиков цикла в секунду
	GrassTrials  int     `yaml:"grass_trials"`
	PlantDensity float64 `yaml:"plant_density"`
}

type FluidConfig struct {
	WaterMaxLevel     uint8 `yaml:"water_max_level"`
	LavaMaxLevel      uint8 `yaml:"lava_max_level"`
	StepIntervalMs    int   `yaml:"step_interval_ms"`
	MaxSpreadPerTick  int   `yaml:"max_spread_per_tick"`
	MaxRetractPerTick int   `yaml:"max_retract_per_tick"`
	SpongeRadius      int   `yaml:"sponge_radius"`
}

type StorageConfig struct {
	Path            string `yaml:"path"`
	InMemory        bool   `yaml:"in_memory"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто = шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

type LoggingConfig struct {
	Console string `yaml:"console"`
	File    string `yaml:"file"`
	Dir     string `yaml:"dir"`
}

// Default конфигурация, с которой сервер стартует без файла
func Default() *Config {
	wopts := world.DefaultOptions()
	bopts := block.DefaultOptions()
	return &Config{
		World: WorldConfig{
			Seed:         1337,
			Radius:       4,
			SeaLevel:     world.DefaultSeaLevel,
			FlatHeight:   32,
			TickRate:     20,
			GrassTrials:  64,
			PlantDensity: 0.02,
		},
		Fluid: FluidConfig{
			WaterMaxLevel:     bopts.WaterMaxLevel,
			LavaMaxLevel:      bopts.LavaMaxLevel,
			StepIntervalMs:    int(wopts.FluidStepInterval / time.Millisecond),
			MaxSpreadPerTick:  wopts.MaxSpreadPerTick,
			MaxRetractPerTick: wopts.MaxRetractPerTick,
			SpongeRadius:      wopts.SpongeRadius,
		},
		Storage: StorageConfig{
			Path:            "data",
			AutosaveSeconds: 30,
		},
		EventBus: EventBusConfig{
			Stream:    "VOXEL",
			Retention: 24,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-world",
			Endpoint:    "localhost:4318",
		},
		Logging: LoggingConfig{
			Console: "INFO",
			File:    "DEBUG",
			Dir:     "logs",
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", 8088)
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML поверх Default().
// Если path == "", берется ENV VOXEL_CONFIG; без него возвращаются дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать конфиг %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфига %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, при которых симуляция не может работать
func (c *Config) Validate() error {
	if c.Fluid.WaterMaxLevel == 0 || c.Fluid.LavaMaxLevel == 0 {
		return fmt.Errorf("fluid: max_level должен быть больше 0")
	}
	if c.Fluid.MaxSpreadPerTick <= 0 || c.Fluid.MaxRetractPerTick <= 0 {
		return fmt.Errorf("fluid: бюджеты тика должны быть больше 0")
	}
	if c.Fluid.StepIntervalMs <= 0 {
		return fmt.Errorf("fluid: step_interval_ms должен быть больше 0")
	}
	if c.Fluid.SpongeRadius < 0 {
		return fmt.Errorf("fluid: sponge_radius не может быть отрицательным")
	}
	if c.World.Radius < 0 {
		return fmt.Errorf("world: radius не может быть отрицательным")
	}
	if c.World.FlatHeight <= world.YMin || c.World.FlatHeight > world.YMax {
		return fmt.Errorf("world: flat_height %d вне диапазона (%d, %d]", c.World.FlatHeight, world.YMin, world.YMax)
	}
	if c.World.TickRate <= 0 {
		return fmt.Errorf("world: tick_rate должен быть больше 0")
	}
	return nil
}

// WorldOptions параметры симуляции для world.New
func (c *Config) WorldOptions() world.Options {
	return world.Options{
		FluidStepInterval: time.Duration(c.Fluid.StepIntervalMs) * time.Millisecond,
		MaxSpreadPerTick:  c.Fluid.MaxSpreadPerTick,
		MaxRetractPerTick: c.Fluid.MaxRetractPerTick,
		SpongeRadius:      c.Fluid.SpongeRadius,
	}
}

// BlockOptions параметры таблицы блоков
func (c *Config) BlockOptions() block.Options {
	return block.Options{
		WaterMaxLevel: c.Fluid.WaterMaxLevel,
		LavaMaxLevel:  c.Fluid.LavaMaxLevel,
	}
}

// TickInterval период цикла движка
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.World.TickRate)
}

// AutosaveInterval период автосохранения; 0 отключает
func (c *Config) AutosaveInterval() time.Duration {
	return time.Duration(c.Storage.AutosaveSeconds) * time.Second
}
