package repo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	rootPathEnvVar = "BALLOT_PATH"

	envPrefix = "BALLOT"

	cfgFileName = "ballot.toml"

	defaultRepoRoot = "~/.ballot"

	LogsDirName = "logs"

	StorageDirName = "storage"
)

// Repo is a ballot home directory: the config file, the ledger storage and
// the rotated logs.
type Repo struct {
	Config *Config
}

// Exist check if the file with the given path exits.
func Exist(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !os.IsNotExist(err)
}

// Load reads ballot.toml below repoRoot, writing the defaults first when the
// file is missing. BALLOT_* environment variables override file values.
func Load(repoRoot string) (*Repo, error) {
	rootPath, err := LoadRepoRootFromEnv(repoRoot)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(rootPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Repo{
		Config: cfg,
	}, nil
}

func loadConfig(rootPath string) (*Config, error) {
	cfg := DefaultConfig(rootPath)
	cfgPath := filepath.Join(rootPath, cfgFileName)

	if !Exist(cfgPath) {
		if err := os.MkdirAll(rootPath, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to build default config")
		}
		if err := writeConfigWithEnv(cfgPath, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to build default config")
		}
		return cfg, nil
	}

	if err := CheckWritable(rootPath); err != nil {
		return nil, err
	}
	if err := readConfigFromFile(cfgPath, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", cfgPath)
	}
	return cfg, nil
}

// StoragePath is the directory holding the ledger database.
func (r *Repo) StoragePath() string {
	return filepath.Join(r.Config.RepoRoot, StorageDirName)
}

func (r *Repo) LogsPath() string {
	return filepath.Join(r.Config.RepoRoot, LogsDirName)
}

// MetricsTextfilePath resolves metrics.textfile against the repo root.
func (r *Repo) MetricsTextfilePath() string {
	if filepath.IsAbs(r.Config.Metrics.Textfile) {
		return r.Config.Metrics.Textfile
	}
	return filepath.Join(r.Config.RepoRoot, r.Config.Metrics.Textfile)
}

func (r *Repo) Flush() error {
	if err := writeConfigWithEnv(filepath.Join(r.Config.RepoRoot, cfgFileName), r.Config); err != nil {
		return errors.Wrap(err, "failed to write config")
	}

	return nil
}

// writeConfigWithEnv writes config, then reads it back through viper so
// environment overrides land in the file as well.
func writeConfigWithEnv(cfgPath string, config any) error {
	if err := writeConfig(cfgPath, config); err != nil {
		return err
	}
	if err := readConfigFromFile(cfgPath, config); err != nil {
		return errors.Wrapf(err, "failed to read cfg from environment")
	}
	return writeConfig(cfgPath, config)
}

func writeConfig(cfgPath string, config any) error {
	raw, err := MarshalConfig(config)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, []byte(raw), 0644)
}

func MarshalConfig(config any) (string, error) {
	buf := bytes.NewBuffer([]byte{})
	e := toml.NewEncoder(buf)
	e.SetIndentTables(true)
	e.SetArraysMultiline(true)
	if err := e.Encode(config); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LoadRepoRootFromEnv picks the repo root: the argument when set, then
// BALLOT_PATH, then ~/.ballot.
func LoadRepoRootFromEnv(repoRoot string) (string, error) {
	if repoRoot != "" {
		return repoRoot, nil
	}
	if p := os.Getenv(rootPathEnvVar); p != "" {
		return p, nil
	}
	return homedir.Expand(defaultRepoRoot)
}

func readConfigFromFile(cfgFilePath string, config any) error {
	vp := viper.New()
	vp.SetConfigFile(cfgFilePath)
	vp.SetConfigType("toml")
	vp.AutomaticEnv()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := vp.ReadInConfig(); err != nil {
		return err
	}
	return vp.Unmarshal(config)
}

// CheckWritable makes sure dir exists, creating it when missing, and that
// the current user can create files in it.
func CheckWritable(dir string) error {
	_, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return os.Mkdir(dir, 0775)
	case os.IsPermission(err):
		return errors.Wrapf(err, "cannot write to %s, incorrect permissions", dir)
	case err != nil:
		return err
	}

	testfile := filepath.Join(dir, ".ballot-write-test")
	f, err := os.Create(testfile)
	if err != nil {
		if os.IsPermission(err) {
			return errors.Errorf("%s is not writeable by the current user", dir)
		}
		return errors.Wrapf(err, "unexpected error while checking writeablility of repo root")
	}
	f.Close()
	return os.Remove(testfile)
}
