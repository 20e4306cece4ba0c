package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/voicecall/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	Log    LogConfig    `mapstructure:"log"`
	Hub    HubConfig    `mapstructure:"hub"`
	Client ClientConfig `mapstructure:"client"`
	Call   CallSection  `mapstructure:"call"`
	Media  MediaConfig  `mapstructure:"media"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// HubConfig tunes the signaling hub.
type HubConfig struct {
	Backpressure  string  `mapstructure:"backpressure"`
	SendBuffer    int     `mapstructure:"send_buffer"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

// ClientConfig is the call client's identity and hub connection.
type ClientConfig struct {
	HubURL      string        `mapstructure:"hub_url"`
	UserID      string        `mapstructure:"user_id"`
	DisplayName string        `mapstructure:"display_name"`
	Rooms       []string      `mapstructure:"rooms"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

type ICEServerConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type CallSection struct {
	ICEServers           []ICEServerConfig `mapstructure:"ice_servers"`
	ICETransportPolicy   string            `mapstructure:"ice_transport_policy"`
	BundlePolicy         string            `mapstructure:"bundle_policy"`
	RTCPMuxPolicy        string            `mapstructure:"rtcp_mux_policy"`
	ICECandidatePoolSize int               `mapstructure:"ice_candidate_pool_size"`
	InviteTimeout        time.Duration     `mapstructure:"invite_timeout"`
	ICETimeout           time.Duration     `mapstructure:"ice_timeout"`
	SignalTimeout        time.Duration     `mapstructure:"signal_timeout"`
}

// MediaConfig points the client at its capture files.
type MediaConfig struct {
	AudioFile     string `mapstructure:"audio_file"`
	VideoFile     string `mapstructure:"video_file"`
	BackVideoFile string `mapstructure:"back_video_file"`
	RecordDir     string `mapstructure:"record_dir"`
}

// Flags declares the command-line flags Load understands.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "config file (default config/config.$CONFIG_ENV.yaml)")
	fs.Int("port", 0, "listen port")
	fs.String("log-level", "", "log level (trace, debug, info, warn, error)")
	return fs
}

func setDefaults(v *viper.Viper) {
	def := domain.DefaultCallConfig()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("hub.backpressure", "kick")
	v.SetDefault("hub.send_buffer", 32)
	v.SetDefault("hub.rate_per_second", 20)
	v.SetDefault("hub.rate_burst", 40)

	v.SetDefault("client.hub_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("client.user_id", "")
	v.SetDefault("client.display_name", "")
	v.SetDefault("client.rooms", []string{})
	v.SetDefault("client.retry_delay", "3s")

	v.SetDefault("call.ice_servers", []map[string]any{{"urls": def.ICEServers[0].URLs}})
	v.SetDefault("call.ice_transport_policy", def.ICETransportPolicy)
	v.SetDefault("call.bundle_policy", def.BundlePolicy)
	v.SetDefault("call.rtcp_mux_policy", def.RTCPMuxPolicy)
	v.SetDefault("call.ice_candidate_pool_size", int(def.ICECandidatePoolSize))
	v.SetDefault("call.invite_timeout", def.InviteTimeout.String())
	v.SetDefault("call.ice_timeout", def.ICETimeout.String())
	v.SetDefault("call.signal_timeout", def.SignalTimeout.String())

	v.SetDefault("media.audio_file", "")
	v.SetDefault("media.video_file", "")
	v.SetDefault("media.back_video_file", "")
	v.SetDefault("media.record_dir", "")
}

// Load reads the config file, VOICE_* environment overrides and the flags
// in fs, which may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileName := ""
	if fs != nil {
		fileName, _ = fs.GetString("config")
		for key, flag := range map[string]string{"port": "port", "log.level": "log-level"} {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Msg("config ready")
	return &cfg, nil
}

// CallConfig builds the immutable call configuration and validates it.
func (c *Config) CallConfig() (domain.CallConfig, error) {
	servers := make([]domain.ICEServer, 0, len(c.Call.ICEServers))
	for _, s := range c.Call.ICEServers {
		servers = append(servers, domain.ICEServer{URLs: s.URLs, Username: s.Username, Credential: s.Credential})
	}
	pool := c.Call.ICECandidatePoolSize
	if pool < 0 || pool > 255 {
		return domain.CallConfig{}, fmt.Errorf("%w: ice candidate pool size %d", domain.ErrInvalidCallConfig, pool)
	}
	cc := domain.CallConfig{
		ICEServers:           servers,
		ICETransportPolicy:   c.Call.ICETransportPolicy,
		BundlePolicy:         c.Call.BundlePolicy,
		RTCPMuxPolicy:        c.Call.RTCPMuxPolicy,
		ICECandidatePoolSize: uint8(pool),
		InviteTimeout:        c.Call.InviteTimeout,
		ICETimeout:           c.Call.ICETimeout,
		SignalTimeout:        c.Call.SignalTimeout,
	}
	if err := cc.Validate(); err != nil {
		return domain.CallConfig{}, err
	}
	return cc, nil
}

// RoomIDs returns the configured client rooms.
func (c *ClientConfig) RoomIDs() []domain.RoomID {
	out := make([]domain.RoomID, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		out = append(out, domain.RoomID(r))
	}
	return out
}
