package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"course-archiver/pkg/archive"
	"course-archiver/pkg/config"
)

const version = "1.0.0"

// passwordEnvVar supplies the account password non-interactively.
const passwordEnvVar = "COURSE_ARCHIVER_PASSWORD"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "archive":
		runArchive(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("course-archiver %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`course-archiver - Online course to offline archive converter

Usage:
  course-archiver <command> [options]

Commands:
  archive     Archive a course into a static build directory
  validate    Validate configuration file
  version     Show version info

Run 'course-archiver <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// runArchive handles the archive subcommand
func runArchive(args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	courseURL := fs.String("course-url", "", "Course URL (overrides config)")
	email := fs.String("email", "", "Account email (overrides config)")
	outputDir := fs.String("output", "", "Output directory (overrides config)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: course-archiver archive [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe account password is read from %s or prompted for.\n", passwordEnvVar)
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  course-archiver archive -config config.yaml\n")
		fmt.Fprintf(os.Stderr, "  course-archiver archive -course-url https://courses.example.org/courses/course-v1:ORG+NUM+RUN/course/ -email me@example.org\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// --- Logger Setup ---
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", *logLevel, err)
	} else {
		log.SetLevel(level)
	}

	// --- Load Configuration ---
	log.Infof("Loading configuration from %s", *configFile)
	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *courseURL != "" {
		cfg.CourseURL = *courseURL
	}
	if *email != "" {
		cfg.Email = *email
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
		cfg.BuildDir = ""
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	password, err := resolvePassword(os.Stdin, os.Stderr)
	if err != nil {
		log.Fatalf("Cannot read password: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archiver, err := archive.New(cfg, logrus.NewEntry(log))
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	if err := archiver.Run(ctx, password); err != nil {
		log.Fatalf("Archive failed: %v", err)
	}
}

// resolvePassword takes the password from the environment or prompts for it.
func resolvePassword(in io.Reader, prompt io.Writer) (string, error) {
	if password := os.Getenv(passwordEnvVar); password != "" {
		return password, nil
	}
	fmt.Fprint(prompt, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	return password, nil
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: course-archiver validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Printf("WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration valid.")
}
