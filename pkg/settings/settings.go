// Package settings loads the settings of the shellhooks tool itself (not the build script).
package settings

import (
	"strings"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Settings describes all tool settings. Values are read from SHELLHOOKS_* environment variables
// and shellhooks.toml in the working directory.
type Settings struct {
	Script     string `default:"build.star" env:"SCRIPT" toml:"script" usage:"Build script to load (.star, .yml or .yaml)"`
	Workers    int    `default:"-1" env:"WORKERS" toml:"workers" usage:"Number of workers waiting for spawned scripts (-1 for unlimited)"`
	StderrTail int    `default:"0" env:"STDERR_TAIL" toml:"stderr_tail" usage:"Trailing stderr bytes of failed scripts to log (0 passes stderr through untouched)"`
	Log        struct {
		Level string `default:"info" env:"LEVEL" toml:"level"`
		JSON  bool   `default:"false" env:"JSON" toml:"json" usage:"Output JSON lines instead of pretty console messages"`
	} `env:"LOG" toml:"log"`
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// Loader initializes an empty settings object and returns a new Loader for it
func Loader(files ...string) (*Settings, *aconfig.Loader) {
	if len(files) == 0 {
		files = []string{"shellhooks.toml"}
	}

	cfg := Settings{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "SHELLHOOKS",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads and validates the settings
func Load(files ...string) (*Settings, error) {
	cfg, loader := Loader(files...)
	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "failed to load settings")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate verifies that all fields have valid values
func (cfg *Settings) Validate() error {
	if cfg.Script == "" {
		return eris.New("script must not be empty")
	}

	if cfg.StderrTail < 0 {
		return eris.Errorf("invalid value for stderr_tail: %d", cfg.StderrTail)
	}

	if _, ok := logLevels[strings.ToLower(cfg.Log.Level)]; !ok {
		return eris.Errorf("invalid value for log.level: %s", cfg.Log.Level)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Settings) LogLevel() zerolog.Level {
	return logLevels[strings.ToLower(cfg.Log.Level)]
}
