package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"genstudio/internal/ai"
	cfgpkg "genstudio/internal/config"
	"genstudio/internal/credential"
	"genstudio/internal/job"
	"genstudio/internal/tools"
)

type videoService interface {
	StartImageToVideo(ctx context.Context, req ai.ImageToVideoRequest) (ai.NovitaTask, error)
	TaskResult(ctx context.Context, taskID string) (ai.NovitaTask, error)
	ai.KeyVerifier
}

var newVideoClient = func(cfg cfgpkg.Config, key string) (videoService, error) {
	return ai.NewNovita(key, ai.WithNovitaBaseURL(cfg.NovitaBaseURL))
}

// genstudio video
func cmdVideo(args []string) error {
	var cf commonFlags
	var of outputFlags
	var model stringFlag
	var pollInterval durationFlag
	var maxPolls intFlag
	var imageURL, prompt string
	var width, height int
	var seed int64
	var noDownload, skipVerify bool
	fs := flag.NewFlagSet("video", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addCommonFlags(fs, &cf)
	addOutputFlags(fs, &of)
	fs.StringVar(&imageURL, "image-url", "", "Public http(s) URL of the source image")
	fs.StringVar(&prompt, "prompt", "", "Motion prompt (or pass it as arguments)")
	fs.IntVar(&width, "width", 1280, "Output width in pixels")
	fs.IntVar(&height, "height", 720, "Output height in pixels")
	fs.Int64Var(&seed, "seed", -1, "Seed; -1 picks a random one")
	fs.Var(&model, "model", "Novita video model name")
	fs.Var(&pollInterval, "poll-interval", "Wait between status checks (default 3s)")
	fs.Var(&maxPolls, "max-polls", "Status checks before giving up (default 120)")
	fs.BoolVar(&noDownload, "no-download", false, "Print the result URL instead of downloading it")
	fs.BoolVar(&skipVerify, "skip-verify", false, "Do not verify the API key before submitting")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	setupLogger(cf.logLevel)

	var flagOv cfgpkg.Overrides
	of.apply(&flagOv)
	if model.set {
		flagOv.VideoModel = &model.v
	}
	if pollInterval.set {
		flagOv.PollInterval = &pollInterval.v
	}
	if maxPolls.set {
		flagOv.MaxPolls = &maxPolls.v
	}
	cfg, err := loadConfig(cf, flagOv)
	if err != nil {
		return err
	}
	if err := cfgpkg.ValidateForVideo(cfg); err != nil {
		return err
	}
	input, err := readInput(prompt, "", fs.Args())
	if err != nil {
		return err
	}
	key, err := resolveKey(cfg, credential.Novita)
	if err != nil {
		return err
	}
	client, err := newVideoClient(cfg, key)
	if err != nil {
		return err
	}

	req := job.Request{Prompt: input, Options: map[string]string{
		tools.OptImageURL: imageURL,
		tools.OptWidth:    strconv.Itoa(width),
		tools.OptHeight:   strconv.Itoa(height),
		tools.OptSeed:     strconv.FormatInt(seed, 10),
	}}
	tool := tools.NewVideo(client, cfg.VideoModel)
	if _, err := tool.Prepare(req); err != nil {
		return err
	}

	ctx := context.Background()
	if !skipVerify {
		ok, err := client.Verify(ctx)
		if err != nil {
			return fmt.Errorf("verify novita key: %w", err)
		}
		if !ok {
			return withKeyHint(&job.Error{Kind: job.KindAuth, Err: errors.New("novita rejected the API key")}, credential.Novita)
		}
		slog.Debug("novita key verified")
	}

	res, err := runJob(ctx, tool, cfg, req)
	if err != nil {
		return withKeyHint(err, credential.Novita)
	}
	return presentResult(ctx, cfg, of, noDownload, res)
}
