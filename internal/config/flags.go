package config

import "flag"

// Flags holds command-line overrides. Register binds them to a subcommand's
// flag set.
type Flags struct {
	ConfigPath  string
	Debug       bool
	Names       string
	Compression string
	Skinning    bool
}

// Register adds the shared flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Names, "names", "", "Name table encoding (raw, shift-jis)")
	fs.StringVar(&f.Compression, "compress", "", "Output compression (none, zlib, zstd)")
	fs.BoolVar(&f.Skinning, "skinning", false, "Export joints and weights")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Names != "" {
		cfg.Codec.NameEncoding = f.Names
	}
	if f.Compression != "" {
		cfg.Codec.Compression = f.Compression
	}
	if f.Skinning {
		cfg.Export.Skinning = true
	}
}
