package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	cfgPkg "github.com/xhad/docchat/pkg/config"
)

type Config struct {
	BaseURL          string
	RequestTimeout   time.Duration
	RateLimit        float64
	MaxUploadBytes   int64
	SelectionPolicy  string
	LogFile          string
	LogConsole       bool
	Debug            bool
	StatusClearDelay time.Duration
	Spinner          bool
	NoColor          bool
	Uploads          []string
}

func main() {
	// A missing .env is fine, the shell environment still applies.
	_ = godotenv.Load()

	config, err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (Config, error) {
	var (
		config     Config
		configPath string
		baseURL    string
		policy     string
		logFile    string
		timeout    time.Duration
		noColor    bool
		noSpinner  bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&baseURL, "api-url", "", "Document QA server URL (overrides config)")
	flag.DurationVar(&timeout, "timeout", 0, "Per-request timeout (overrides config)")
	flag.StringVar(&policy, "policy", "", "Selection policy: strict or legacy (overrides config)")
	flag.StringVar(&logFile, "log-file", "", "Log file path (overrides config)")
	flag.BoolVar(&config.Debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flag.BoolVar(&noSpinner, "no-spinner", false, "Disable the busy spinner")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [file.pdf ...]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "PDF arguments are uploaded before the chat starts.")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return config, err
	}

	// Command line flags win over the file and the environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api-url":
			cfg.Client.BaseURL = baseURL
		case "timeout":
			cfg.Client.RequestTimeout = timeout
		case "policy":
			cfg.Session.SelectionPolicy = policy
		case "log-file":
			cfg.Log.File = logFile
		case "no-color":
			cfg.UI.NoColor = noColor
		case "no-spinner":
			cfg.UI.Spinner = !noSpinner
		}
	})

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		return config, fmt.Errorf("invalid configuration: %d error(s)", len(errs))
	}

	config.BaseURL = cfg.Client.BaseURL
	config.RequestTimeout = cfg.Client.RequestTimeout
	config.RateLimit = cfg.Client.RateLimit
	config.MaxUploadBytes = cfg.Client.MaxUploadBytes
	config.SelectionPolicy = cfg.Session.SelectionPolicy
	config.LogFile = cfg.Log.File
	config.LogConsole = cfg.Log.Console
	config.StatusClearDelay = cfg.UI.StatusClearDelay
	config.Spinner = cfg.UI.Spinner
	config.NoColor = cfg.UI.NoColor
	config.Uploads = flag.Args()

	return config, nil
}
