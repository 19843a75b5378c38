package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"genstudio/internal/ai"
	cfgpkg "genstudio/internal/config"
	"genstudio/internal/credential"
	"genstudio/internal/job"
	"genstudio/internal/tools"
)

type imageGenerator interface {
	TextToImage(ctx context.Context, model, prompt string) (*ai.Image, error)
}

var newImageClient = func(cfg cfgpkg.Config, key string) (imageGenerator, error) {
	return ai.NewHuggingFace(key, ai.WithHuggingFaceBaseURL(cfg.HuggingFaceBaseURL))
}

// genstudio image
func cmdImage(args []string) error {
	var cf commonFlags
	var of outputFlags
	var model stringFlag
	var prompt string
	fs := flag.NewFlagSet("image", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addCommonFlags(fs, &cf)
	addOutputFlags(fs, &of)
	fs.StringVar(&prompt, "prompt", "", "Image prompt (or pass it as arguments)")
	fs.Var(&model, "model", "Hugging Face model id")

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
		flagOv.ImageModel = &model.v
	}
	cfg, err := loadConfig(cf, flagOv)
	if err != nil {
		return err
	}
	input, err := readInput(prompt, "", fs.Args())
	if err != nil {
		return err
	}
	key, err := resolveKey(cfg, credential.HuggingFace)
	if err != nil {
		return err
	}
	client, err := newImageClient(cfg, key)
	if err != nil {
		return err
	}

	ctx := context.Background()
	res, err := runJob(ctx, tools.NewImage(client, cfg.ImageModel), cfg, job.Request{Prompt: input})
	if err != nil {
		return withKeyHint(err, credential.HuggingFace)
	}
	return presentResult(ctx, cfg, of, false, res)
}
