package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，GRIMOIRE_REDIS_HOST 覆盖 redis.host
const EnvPrefix = "GRIMOIRE"

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Redis       RedisConfig       `mapstructure:"redis"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Room        RoomConfig        `mapstructure:"room"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Replication ReplicationConfig `mapstructure:"replication"`
}

type AppConfig struct {
	Name       string `mapstructure:"name"`
	LogLevel   string `mapstructure:"log_level"`
	HTTPAddr   string `mapstructure:"http_addr"`
	HealthAddr string `mapstructure:"health_addr"`
	Mode       string `mapstructure:"mode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr Redis 地址
func (c RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// NATSConfig URL 为空时使用进程内广播
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// Enabled 是否配置了 NATS
func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

// DatabaseConfig Host 为空时不连接数据库
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Enabled 是否配置了数据库
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// DSN pgx 连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Name)
}

type JWTConfig struct {
	SecretKey    string        `mapstructure:"secret_key"`
	AccessExpire time.Duration `mapstructure:"access_expire"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type RoomConfig struct {
	MinSeats       int           `mapstructure:"min_seats"`
	MaxSeats       int           `mapstructure:"max_seats"`
	DocumentTTL    time.Duration `mapstructure:"document_ttl"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	ResyncInterval time.Duration `mapstructure:"resync_interval"`
	EvictTimeout   time.Duration `mapstructure:"evict_timeout"`
	MaxRooms       int           `mapstructure:"max_rooms"`
	DefaultScript  string        `mapstructure:"default_script"`
}

type ArchiveConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Workers   int  `mapstructure:"workers"`
	QueueSize int  `mapstructure:"queue_size"`
}

type ReplicationConfig struct {
	// EdgeFilter 为 true 时在服务端按观看者过滤文档，否则下发完整文档由客户端过滤
	EdgeFilter    bool   `mapstructure:"edge_filter"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "grimoire")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_addr", ":8080")
	v.SetDefault("app.health_addr", ":8081")
	v.SetDefault("app.mode", "release")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.max_reconnects", 60)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "grimoire")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.access_expire", 7*24*time.Hour)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allow_credentials", false)

	v.SetDefault("room.min_seats", 5)
	v.SetDefault("room.max_seats", 20)
	v.SetDefault("room.document_ttl", 24*time.Hour)
	v.SetDefault("room.lock_ttl", 5*time.Second)
	v.SetDefault("room.resync_interval", 5*time.Second)
	v.SetDefault("room.evict_timeout", 30*time.Minute)
	v.SetDefault("room.max_rooms", 5000)
	v.SetDefault("room.default_script", "trouble_brewing")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.workers", 4)
	v.SetDefault("archive.queue_size", 256)

	v.SetDefault("replication.edge_filter", false)
	v.SetDefault("replication.subject_prefix", "grimoire.room")
}

// Load 加载配置：默认值 < YAML 文件 < .env / 环境变量
// path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	ErrMissingSecret = errors.New("jwt.secret_key is required")
	ErrSeatRange     = errors.New("room.min_seats must be between 5 and room.max_seats")
)

func (c *Config) validate() error {
	if c.JWT.SecretKey == "" {
		return ErrMissingSecret
	}
	if c.Room.MinSeats < 5 || c.Room.MinSeats > c.Room.MaxSeats {
		return ErrSeatRange
	}
	return nil
}
