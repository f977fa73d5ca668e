package main

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/ini.v1"
)

// Sentinel errors returned by the typed accessors.
var (
	ErrMissingKey   = errors.New("missing config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// Config section names.
const (
	sectionAPI = "api"
	sectionApp = "app"
	sectionLog = "log"
)

const defaultConfigPath = "config.ini"

var (
	configOnce      sync.Once
	globalConfig    *Config
	globalConfigErr error
)

// Config is a read-only view over an INI settings file.
// Option names are case-insensitive, section names are not.
type Config struct {
	path string
	file *ini.File
}

// LoadConfig returns the process-wide configuration. The file is read on the
// first call only; later calls return the same instance whatever path they pass.
func LoadConfig(path string) (*Config, error) {
	configOnce.Do(func() {
		globalConfig, globalConfigErr = NewConfig(path)
	})
	return globalConfig, globalConfigErr
}

// NewConfig reads the INI file at path. Unlike LoadConfig it is not shared.
func NewConfig(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}
	GetLogger().Debug("loading config", zap.String("path", path))

	f, err := ini.LoadSources(iniOptions(), path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return &Config{path: path, file: f}, nil
}

// ParseConfig builds a Config from raw INI text.
func ParseConfig(data []byte) (*Config, error) {
	f, err := ini.LoadSources(iniOptions(), data)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return &Config{file: f}, nil
}

func iniOptions() ini.LoadOptions {
	return ini.LoadOptions{
		InsensitiveKeys:          true,
		SpaceBeforeInlineComment: true,
	}
}

// Path returns the file the config was read from, empty for parsed text.
func (c *Config) Path() string { return c.path }

func (c *Config) key(section, option string) (*ini.Key, error) {
	sec, err := c.file.GetSection(section)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingKey, "no section %q (want %s.%s)", section, section, option)
	}
	k, err := sec.GetKey(option)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingKey, "no option %s.%s", section, option)
	}
	return k, nil
}

// HasOption reports whether section.option is present.
func (c *Config) HasOption(section, option string) bool {
	sec, err := c.file.GetSection(section)
	if err != nil {
		return false
	}
	return sec.HasKey(option)
}

// Get returns the raw string value of section.option.
func (c *Config) Get(section, option string) (string, error) {
	k, err := c.key(section, option)
	if err != nil {
		return "", err
	}
	return k.String(), nil
}

// boolStates are the accepted boolean spellings, matched case-insensitively.
var boolStates = map[string]bool{
	"1": true, "yes": true, "true": true, "on": true,
	"0": false, "no": false, "false": false, "off": false,
}

// GetBool parses section.option as a boolean (true/false, yes/no, on/off, 1/0
// in any case).
func (c *Config) GetBool(section, option string) (bool, error) {
	k, err := c.key(section, option)
	if err != nil {
		return false, err
	}
	v, ok := boolStates[strings.ToLower(strings.TrimSpace(k.String()))]
	if !ok {
		return false, invalidValue(section, option, k.String(), "bool")
	}
	return v, nil
}

// GetInt parses section.option as a base-10 integer. A leading zero does not
// switch to octal and no base prefix is accepted.
func (c *Config) GetInt(section, option string) (int, error) {
	k, err := c.key(section, option)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(k.String()))
	if err != nil {
		return 0, invalidValue(section, option, k.String(), "int")
	}
	return v, nil
}

// GetFloat parses section.option as a float64.
func (c *Config) GetFloat(section, option string) (float64, error) {
	k, err := c.key(section, option)
	if err != nil {
		return 0, err
	}
	v, err := k.Float64()
	if err != nil {
		return 0, invalidValue(section, option, k.String(), "float")
	}
	return v, nil
}

// GetList splits section.option on delimiter and trims every element.
// An empty delimiter means ",".
func (c *Config) GetList(section, option, delimiter string) ([]string, error) {
	raw, err := c.Get(section, option)
	if err != nil {
		return nil, err
	}
	if delimiter == "" {
		delimiter = ","
	}
	parts := strings.Split(raw, delimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out, nil
}

func invalidValue(section, option, raw, kind string) error {
	return errors.Wrapf(ErrInvalidValue, "%s.%s = %q is not a valid %s", section, option, raw, kind)
}

// Settings is the typed snapshot of everything a run needs.
type Settings struct {
	APIToken         string
	APIURL           string
	RunOnLive        bool
	LiveBackend      string
	SimulatorBackend string
	Shots            int
	NumTests         int
	Qubits           int
	ExpectedOutcomes []string
	CircuitFile      string
	PollInterval     time.Duration
	Seed             uint64
	HasSeed          bool
	Log              LoggerConfig
}

// Defaults for optional settings.
const (
	DefaultAPIURL           = "https://api.quantum-computing.ibm.com/api"
	DefaultLiveBackend      = "ibmq_16_melbourne"
	DefaultSimulatorBackend = "qasm_simulator"
	DefaultShots            = 1000
	DefaultNumTests         = 1
	DefaultQubits           = 2
	DefaultPollInterval     = 2 * time.Second
)

// LoadSettings reads the recognised options out of cfg. app.run_on_live_hardware
// is required, and api.api-token is required when it is true.
func LoadSettings(cfg *Config) (Settings, error) {
	s := Settings{
		APIURL:           DefaultAPIURL,
		LiveBackend:      DefaultLiveBackend,
		SimulatorBackend: DefaultSimulatorBackend,
		Shots:            DefaultShots,
		NumTests:         DefaultNumTests,
		Qubits:           DefaultQubits,
		PollInterval:     DefaultPollInterval,
		Log:              LoggerConfig{Level: "info", Format: "console", ServiceName: "qtrials"},
	}

	var err error
	if s.RunOnLive, err = cfg.GetBool(sectionApp, "run_on_live_hardware"); err != nil {
		return s, err
	}

	optString := func(section, option string, dst *string) {
		if err == nil && cfg.HasOption(section, option) {
			*dst, err = cfg.Get(section, option)
		}
	}
	optInt := func(section, option string, dst *int) {
		if err == nil && cfg.HasOption(section, option) {
			*dst, err = cfg.GetInt(section, option)
		}
	}

	optString(sectionAPI, "api-token", &s.APIToken)
	optString(sectionAPI, "url", &s.APIURL)
	optString(sectionApp, "live_backend", &s.LiveBackend)
	optString(sectionApp, "simulator_backend", &s.SimulatorBackend)
	optString(sectionApp, "circuit_file", &s.CircuitFile)
	optInt(sectionApp, "shots", &s.Shots)
	optInt(sectionApp, "num_tests", &s.NumTests)
	optInt(sectionApp, "qubits", &s.Qubits)
	optString(sectionLog, "level", &s.Log.Level)
	optString(sectionLog, "format", &s.Log.Format)
	optString(sectionLog, "file", &s.Log.LogFile)
	if err != nil {
		return s, err
	}

	if cfg.HasOption(sectionApp, "expected_outcomes") {
		if s.ExpectedOutcomes, err = cfg.GetList(sectionApp, "expected_outcomes", ","); err != nil {
			return s, err
		}
	}
	if cfg.HasOption(sectionApp, "poll_interval") {
		secs, err := cfg.GetFloat(sectionApp, "poll_interval")
		if err != nil {
			return s, err
		}
		if secs <= 0 {
			return s, errors.Wrapf(ErrInvalidValue, "app.poll_interval must be positive, got %g", secs)
		}
		s.PollInterval = time.Duration(secs * float64(time.Second))
	}
	if cfg.HasOption(sectionApp, "seed") {
		seed, err := cfg.GetInt(sectionApp, "seed")
		if err != nil {
			return s, err
		}
		s.Seed, s.HasSeed = uint64(seed), true
	}

	return s, s.Validate()
}

// Validate checks the cross-field constraints of s.
func (s Settings) Validate() error {
	switch {
	case s.Shots <= 0:
		return errors.Wrapf(ErrInvalidValue, "app.shots must be positive, got %d", s.Shots)
	case s.NumTests <= 0:
		return errors.Wrapf(ErrInvalidValue, "app.num_tests must be positive, got %d", s.NumTests)
	case s.Qubits <= 0 || s.Qubits > MaxSimQubits:
		return errors.Wrapf(ErrInvalidValue, "app.qubits must be in 1..%d, got %d", MaxSimQubits, s.Qubits)
	case s.RunOnLive && s.APIToken == "":
		return errors.Wrap(ErrMissingKey, "api.api-token is required when running on live hardware")
	}
	return nil
}

// BackendName returns the backend the settings select.
func (s Settings) BackendName() string {
	if s.RunOnLive {
		return s.LiveBackend
	}
	return s.SimulatorBackend
}
