// Package config handles nudtool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Codec   CodecConfig   `yaml:"codec"`
	Export  ExportConfig  `yaml:"export"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // console or json
	LogFile string `yaml:"log_file"`
}

// CodecConfig holds container codec settings.
type CodecConfig struct {
	NameEncoding string `yaml:"name_encoding"` // raw or shift-jis
	Compression  string `yaml:"compression"`   // none, zlib or zstd; applied by rebuild
}

// ExportConfig holds glTF export settings.
type ExportConfig struct {
	Generator  string `yaml:"generator"`
	SkipHidden bool   `yaml:"skip_hidden"`
	Skinning   bool   `yaml:"skinning"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Codec: CodecConfig{
			NameEncoding: "raw",
			Compression:  "none",
		},
		Export: ExportConfig{
			Generator:  "nudtool",
			SkipHidden: true,
		},
	}
}
