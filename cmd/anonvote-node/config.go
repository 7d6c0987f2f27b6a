package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/internal"
	"github.com/vocdoni/anonvote-node/log"
)

const (
	defaultAPIHost       = "0.0.0.0"
	defaultAPIPort       = 9090
	defaultDBType        = db.TypePebble
	defaultLogLevel      = "info"
	defaultLogOutput     = "stdout"
	defaultDatadir       = ".anonvote" // Will be prefixed with user's home directory
	defaultTallyDelay    = 10 * time.Minute
	defaultTallyInterval = time.Minute
	artifactsTimeout     = 5 * time.Minute
)

// Version is the build version, set at build time with -ldflags
var Version = internal.Version

var availableDBTypes = []string{db.TypePebble, db.TypeLevelDB, db.TypeMongo, db.TypeInMemory}

// Config holds the application configuration
type Config struct {
	DB        DBConfig
	API       APIConfig
	Log       LogConfig
	VoteProof VoteProofConfig
	Signer    SignerConfig
	Tally     TallyConfig
	Datadir   string
}

// DBConfig holds the storage backend configuration
type DBConfig struct {
	Type string `mapstructure:"type"`
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	NoLog bool   `mapstructure:"nolog"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	ErrorFile string `mapstructure:"errorFile"`
}

// VoteProofConfig holds the location of the vote circuit verification key
type VoteProofConfig struct {
	VKFile string `mapstructure:"vkFile"`
	VKURL  string `mapstructure:"vkURL"`
	VKHash string `mapstructure:"vkHash"`
}

// SignerConfig holds the key used to sign vote receipts
type SignerConfig struct {
	PrivKey string `mapstructure:"privKey"`
}

// TallyConfig holds the automatic tally configuration
type TallyConfig struct {
	Delay    time.Duration `mapstructure:"delay"`
	Interval time.Duration `mapstructure:"interval"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	// Get user's home directory for default datadir
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("db.type", defaultDBType)
	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("tally.delay", defaultTallyDelay)
	v.SetDefault("tally.interval", defaultTallyInterval)
	v.SetDefault("datadir", defaultDatadirPath)

	// Configure flags
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database and artifacts")
	flag.String("db.type", defaultDBType, fmt.Sprintf("database backend %v", availableDBTypes))
	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.Bool("api.nolog", false, "disable API request logging")
	flag.StringP("voteproof.vkFile", "v", "", "local vote circuit verification key file (snarkjs JSON)")
	flag.String("voteproof.vkURL", "", "vote circuit verification key URL (defaults to the artifacts CDN)")
	flag.String("voteproof.vkHash", "", "expected sha256 of the vote circuit verification key (hex)")
	flag.StringP("signer.privKey", "k", "", "private key used to sign vote receipts (receipts are unsigned if empty)")
	flag.Duration("tally.delay", defaultTallyDelay, "time a closed election waits before it is tallied automatically")
	flag.Duration("tally.interval", defaultTallyInterval, "how often closed elections are checked (0 disables automatic tally)")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.String("log.errorFile", "", "also write warnings and errors to this file")

	// Configure usage information
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "anonvote-node v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: anonvote-node [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, ANONVOTE_SIGNER_PRIVKEY or ANONVOTE_API_HOST\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with a local verification key\n")
		fmt.Fprintf(os.Stderr, "  anonvote-node --voteproof.vkFile=./vk.json\n\n")
		fmt.Fprintf(os.Stderr, "  # Start with a published verification key and signed receipts\n")
		fmt.Fprintf(os.Stderr, "  anonvote-node --voteproof.vkHash=ab12... --signer.privKey=0x123...\n")
	}

	// Parse flags
	flag.CommandLine.SortFlags = false
	flag.Parse()

	// Configure Viper to use environment variables
	v.SetEnvPrefix("ANONVOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind flags to Viper
	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.VoteProof.VKFile == "" && cfg.VoteProof.VKHash == "" {
		return fmt.Errorf("a verification key is required (use --voteproof.vkFile or --voteproof.vkHash)")
	}
	if !slices.Contains(availableDBTypes, cfg.DB.Type) {
		return fmt.Errorf("invalid database type %s, available types: %v", cfg.DB.Type, availableDBTypes)
	}
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("invalid API port %d", cfg.API.Port)
	}
	if cfg.Tally.Delay < 0 || cfg.Tally.Interval < 0 {
		return fmt.Errorf("tally delay and interval cannot be negative")
	}
	return nil
}
