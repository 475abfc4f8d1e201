// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// CloudConfig describes the activation endpoint and the persistent session.
type CloudConfig struct {
	ActivationURL   string `mapstructure:"activation_url" validate:"required"`
	SessionURL      string `mapstructure:"session_url" validate:"required"`
	AuthBearer      string `mapstructure:"auth_bearer"`
	ProtocolVersion string `mapstructure:"protocol_version" validate:"required"`
}

// AudioConfig names the devices and sample-rate overrides.
type AudioConfig struct {
	CaptureDevice    string `mapstructure:"capture_device"`
	PlaybackDevice   string `mapstructure:"playback_device"`
	CaptureRateHz    int    `mapstructure:"capture_rate_hz"`
	PlaybackRateHz   int    `mapstructure:"playback_rate_hz"`
	VADEnabled       bool   `mapstructure:"vad_enabled"`
	VADModelPath     string `mapstructure:"vad_model_path"`
	DumpWavPath      string `mapstructure:"dump_wav_path"`
}

// NotifyConfig configures the optional Redis-backed durable notification
// queue. When Enabled is false the Controller keeps notifications purely
// in memory and this section is ignored.
type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MCPConfig is the tool gateway section: {enabled, tools[]}.
type MCPConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Tools   []ToolConfig `mapstructure:"tools"`
}

// ToolConfig is the on-disk shape of one ToolDescriptor.
type ToolConfig struct {
	Name        string                 `mapstructure:"name" validate:"required"`
	Description string                 `mapstructure:"description"`
	InputSchema map[string]interface{} `mapstructure:"input_schema"`
	Transport   string                 `mapstructure:"transport" validate:"required,oneof=subprocess http tcp"`
	Executable  string                 `mapstructure:"executable"`
	Args        []string               `mapstructure:"args"`
	URL         string                 `mapstructure:"url"`
	Method      string                 `mapstructure:"method"`
	Address     string                 `mapstructure:"address"`
	Mode        string                 `mapstructure:"mode" validate:"required,oneof=sync background"`
	TimeoutMs   uint32                 `mapstructure:"timeout_ms"`
	Notify      string                 `mapstructure:"notify" validate:"omitempty,oneof=disabled webhook local_socket mqtt"`
	WebhookURL  string                 `mapstructure:"webhook_url"`
}

// BridgeConfig configures the GUI/IoT UDP bridges.
type BridgeConfig struct {
	GUIOutPort int    `mapstructure:"gui_out_port"`
	GUIInPort  int    `mapstructure:"gui_in_port"`
	IoTOutPort int    `mapstructure:"iot_out_port"`
	Host       string `mapstructure:"host"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	LogLevel    string       `mapstructure:"log_level" validate:"required"`
	Environment string       `mapstructure:"environment" validate:"required"`
	IdentityPath string      `mapstructure:"identity_path" validate:"required"`
	Cloud       CloudConfig  `mapstructure:"cloud" validate:"required"`
	Audio       AudioConfig  `mapstructure:"audio"`
	MCP         MCPConfig    `mapstructure:"mcp"`
	Bridge      BridgeConfig `mapstructure:"bridge"`
	Notify      NotifyConfig `mapstructure:"notify"`
}

// InitConfig builds a viper instance pointed at path (or ENV_PATH, or the
// default), with environment variables overriding file values.
func InitConfig(path string) (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName("config")
	vConfig.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv("ENV_PATH")
	}
	if path != "" {
		vConfig.SetConfigFile(path)
	}

	vConfig.AutomaticEnv()
	setDefault(vConfig)

	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("reading config: %v", err)
		return nil, err
	}
	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("IDENTITY_PATH", "/etc/xiaozhi/identity.json")

	v.SetDefault("CLOUD__PROTOCOL_VERSION", "1")

	v.SetDefault("AUDIO__CAPTURE_DEVICE", "default")
	v.SetDefault("AUDIO__PLAYBACK_DEVICE", "default")
	v.SetDefault("AUDIO__CAPTURE_RATE_HZ", 16000)
	v.SetDefault("AUDIO__PLAYBACK_RATE_HZ", 24000)
	v.SetDefault("AUDIO__VAD_ENABLED", false)

	v.SetDefault("MCP__ENABLED", false)

	v.SetDefault("BRIDGE__HOST", "127.0.0.1")
	v.SetDefault("BRIDGE__GUI_OUT_PORT", 7701)
	v.SetDefault("BRIDGE__GUI_IN_PORT", 7702)
	v.SetDefault("BRIDGE__IOT_OUT_PORT", 7703)

	v.SetDefault("NOTIFY__ENABLED", false)
	v.SetDefault("NOTIFY__ADDR", "127.0.0.1:6379")
	v.SetDefault("NOTIFY__DB", 0)
}

// Load reads and validates the AppConfig from the given viper instance.
func Load(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &cfg, nil
}
