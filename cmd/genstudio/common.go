package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	cfgpkg "genstudio/internal/config"
	"genstudio/internal/credential"
	"genstudio/internal/job"
	"genstudio/internal/present"
	"genstudio/internal/storage"
)

// stdout receives command results (paths, URLs, listings). Logs go through slog.
var stdout io.Writer = os.Stdout

// set up slog logger according to level; defaults to info.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// stringFlag records whether a string flag was given so config precedence
// can tell "unset" from "empty".
type stringFlag struct {
	v   string
	set bool
}

func (f *stringFlag) String() string { return f.v }
func (f *stringFlag) Set(s string) error {
	f.v = s
	f.set = true
	return nil
}

type boolFlag struct {
	v   bool
	set bool
}

func (f *boolFlag) String() string   { return strconv.FormatBool(f.v) }
func (f *boolFlag) IsBoolFlag() bool { return true }
func (f *boolFlag) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	f.v = b
	f.set = true
	return nil
}

type intFlag struct {
	v   int
	set bool
}

func (f *intFlag) String() string { return strconv.Itoa(f.v) }
func (f *intFlag) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.v = n
	f.set = true
	return nil
}

type durationFlag struct {
	v   time.Duration
	set bool
}

func (f *durationFlag) String() string { return f.v.String() }
func (f *durationFlag) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	f.v = d
	f.set = true
	return nil
}

// Common flags for config/log-level/credentials across subcommands
type commonFlags struct {
	config      string
	logLevel    string
	credentials string
}

func addCommonFlags(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.config, "config", "config.json", "Path to config file")
	fs.StringVar(&cf.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cf.credentials, "credentials", "", "Path to the API key store (default: user config dir)")
}

// Output flags shared by the generation subcommands
type outputFlags struct {
	out       string
	outputDir stringFlag
	overwrite boolFlag
	publish   bool
	bucket    stringFlag
	prefix    stringFlag
	region    stringFlag
}

func addOutputFlags(fs *flag.FlagSet, of *outputFlags) {
	fs.StringVar(&of.out, "out", "", "Output file (default: <output-dir>/YYYY/MM/DD/<kind>-HHMMSS.<ext>)")
	fs.Var(&of.outputDir, "output-dir", "Base output directory")
	fs.Var(&of.overwrite, "overwrite", "Overwrite existing files and published objects")
	fs.BoolVar(&of.publish, "publish", false, "Upload the saved file to S3")
	fs.Var(&of.bucket, "bucket", "S3 bucket for --publish")
	fs.Var(&of.prefix, "prefix", "S3 key prefix for --publish")
	fs.Var(&of.region, "region", "AWS region for --publish")
}

func (of *outputFlags) apply(ov *cfgpkg.Overrides) {
	if of.outputDir.set {
		ov.OutputDir = &of.outputDir.v
	}
	if of.overwrite.set {
		ov.Overwrite = &of.overwrite.v
	}
	if of.bucket.set {
		ov.S3Bucket = &of.bucket.v
	}
	if of.prefix.set {
		ov.S3Prefix = &of.prefix.v
	}
	if of.region.set {
		ov.Region = &of.region.v
	}
}

// loadConfig merges .env, the config file, env and flag overrides.
func loadConfig(cf commonFlags, flagOv cfgpkg.Overrides) (cfgpkg.Config, error) {
	cfgpkg.LoadDotEnv()
	fileCfg, err := cfgpkg.LoadFile(cf.config)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	envOv, keys := cfgpkg.FromEnv()
	cfg := cfgpkg.Merge(fileCfg, envOv, flagOv, keys)
	if cf.credentials != "" {
		cfg.CredentialsFile = cf.credentials
	}
	return cfg, nil
}

var newCredentialStore = func(path string) (credential.Store, error) {
	if path == "" {
		p, err := credential.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return credential.NewFileStore(path)
}

var keyEnvNames = map[string]string{
	credential.ElevenLabs:  "ELEVENLABS_API_KEY",
	credential.OpenAI:      "OPENAI_API_KEY",
	credential.HuggingFace: "HF_TOKEN",
	credential.Novita:      "NOVITA_API_KEY",
}

func envKey(keys cfgpkg.Keys, service string) string {
	switch service {
	case credential.ElevenLabs:
		return keys.ElevenLabs
	case credential.OpenAI:
		return keys.OpenAI
	case credential.HuggingFace:
		return keys.HuggingFace
	case credential.Novita:
		return keys.Novita
	}
	return ""
}

// resolveKey returns the key for service, preferring the environment over
// the stored value.
func resolveKey(cfg cfgpkg.Config, service string) (string, error) {
	store, err := newCredentialStore(cfg.CredentialsFile)
	if err != nil {
		return "", err
	}
	key, err := credential.Lookup(store, service, envKey(cfg.Keys, service))
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", job.Invalid(service+" key", fmt.Sprintf("is not set; export %s or run: genstudio key set %s", keyEnvNames[service], service))
	}
	return key, nil
}

// withKeyHint adds a re-entry hint to auth failures.
func withKeyHint(err error, service string) error {
	if err == nil || job.KindOf(err) != job.KindAuth {
		return err
	}
	return fmt.Errorf("%w (the %s key was rejected; re-enter it with: genstudio key set %s)", err, service, service)
}

func logUpdate(u job.Update) {
	attrs := []any{"jobID", u.JobID, "tool", u.Tool, "status", u.Status}
	if u.Message != "" {
		attrs = append(attrs, "message", u.Message)
	}
	if u.Attempt > 0 {
		attrs = append(attrs, "attempt", u.Attempt)
	}
	slog.Info("job update", attrs...)
}

// runJob submits req and blocks until the job is terminal. SIGINT and
// SIGTERM cancel the job.
func runJob(ctx context.Context, tool job.Tool, cfg cfgpkg.Config, req job.Request) (*job.Result, error) {
	runner := job.NewRunner(tool, job.Options{
		PollInterval: cfg.PollInterval.Std(),
		MaxPolls:     cfg.MaxPolls,
		Observer:     logUpdate,
		Logger:       slog.Default(),
	})
	j, err := runner.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-sigCtx.Done():
			if runner.Cancel() {
				slog.Warn("job cancelled by signal", "jobID", j.ID)
			}
		case <-j.Done():
		}
	}()
	return j.Wait(context.Background())
}

var newUploader = func(ctx context.Context, cfg cfgpkg.Config) (present.Publisher, error) {
	up, err := storage.New(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.Region)
	if err != nil {
		return nil, err
	}
	up.SetHistorySize(cfg.HistorySize)
	return up, nil
}

// presentResult saves res and prints where it went.
func presentResult(ctx context.Context, cfg cfgpkg.Config, of outputFlags, noDownload bool, res *job.Result) error {
	opts := present.Options{
		OutputDir:  cfg.OutputDir,
		Overwrite:  cfg.Overwrite,
		NoDownload: noDownload,
		Logger:     slog.Default(),
	}
	if of.publish {
		if err := cfgpkg.ValidateForPublish(cfg); err != nil {
			return err
		}
		up, err := newUploader(ctx, cfg)
		if err != nil {
			return err
		}
		opts.Publisher = up
	}
	out, err := present.New(opts).Present(ctx, res, of.out)
	if err != nil {
		return err
	}
	if out.Path != "" {
		fmt.Fprintln(stdout, out.Path)
	} else {
		fmt.Fprintln(stdout, out.URL)
	}
	if out.Published != "" {
		fmt.Fprintln(stdout, out.Published)
	}
	return nil
}

// readInput returns inline text, the contents of file, or the joined
// positional args, in that order.
func readInput(inline, file string, args []string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return strings.Join(args, " "), nil
}
