package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"genstudio/internal/ai"
	cfgpkg "genstudio/internal/config"
	"genstudio/internal/credential"
	"genstudio/internal/job"
	"genstudio/internal/tools"
)

const (
	openAIDefaultVoice = "alloy"
	openAIDefaultModel = "gpt-4o-mini-tts"
)

var newSpeechClient = func(cfg cfgpkg.Config, key string) (ai.SpeechClient, error) {
	switch speechProvider(cfg) {
	case credential.OpenAI:
		return ai.New(key, cfg.OpenAIBaseURL, nil)
	case credential.ElevenLabs:
		return ai.NewElevenLabs(key, ai.WithElevenLabsBaseURL(cfg.ElevenLabsBaseURL))
	default:
		return nil, fmt.Errorf("unsupported audio provider: %s", cfg.AudioProvider)
	}
}

func speechProvider(cfg cfgpkg.Config) string {
	provider := strings.ToLower(strings.TrimSpace(cfg.AudioProvider))
	if provider == "" {
		provider = credential.ElevenLabs
	}
	return provider
}

// speechDefaults swaps the ElevenLabs voice and model defaults for OpenAI
// ones when the provider is OpenAI and nothing else was configured.
func speechDefaults(cfg cfgpkg.Config) cfgpkg.Config {
	if speechProvider(cfg) != credential.OpenAI {
		return cfg
	}
	def := cfgpkg.Default()
	if cfg.Voice == def.Voice {
		cfg.Voice = openAIDefaultVoice
	}
	if cfg.AudioModel == def.AudioModel {
		cfg.AudioModel = openAIDefaultModel
	}
	return cfg
}

// genstudio audio
func cmdAudio(args []string) error {
	var cf commonFlags
	var of outputFlags
	var provider, voice, model stringFlag
	var text, textFile, stability, clarity string
	fs := flag.NewFlagSet("audio", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addCommonFlags(fs, &cf)
	addOutputFlags(fs, &of)
	fs.StringVar(&text, "text", "", "Text to speak (or pass it as arguments)")
	fs.StringVar(&textFile, "text-file", "", "Read the text to speak from a file")
	fs.Var(&provider, "provider", "Speech provider: elevenlabs or openai")
	fs.Var(&voice, "voice", "Voice id")
	fs.Var(&model, "model", "Speech model id")
	fs.StringVar(&stability, "stability", "", "Voice stability in [0,1] (default 0.5)")
	fs.StringVar(&clarity, "clarity", "", "Clarity/similarity boost in [0,1] (default 0.5)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	setupLogger(cf.logLevel)

	var flagOv cfgpkg.Overrides
	of.apply(&flagOv)
	if provider.set {
		flagOv.AudioProvider = &provider.v
	}
	if voice.set {
		flagOv.Voice = &voice.v
	}
	if model.set {
		flagOv.AudioModel = &model.v
	}
	cfg, err := loadConfig(cf, flagOv)
	if err != nil {
		return err
	}
	if err := cfgpkg.ValidateForAudio(cfg); err != nil {
		return err
	}
	cfg = speechDefaults(cfg)

	input, err := readInput(text, textFile, fs.Args())
	if err != nil {
		return err
	}
	service := speechProvider(cfg)
	key, err := resolveKey(cfg, service)
	if err != nil {
		return err
	}
	client, err := newSpeechClient(cfg, key)
	if err != nil {
		return err
	}

	req := job.Request{Prompt: input, Options: map[string]string{
		tools.OptVoice:     cfg.Voice,
		tools.OptModel:     cfg.AudioModel,
		tools.OptStability: stability,
		tools.OptClarity:   clarity,
	}}
	ctx := context.Background()
	res, err := runJob(ctx, tools.NewAudio(client), cfg, req)
	if err != nil {
		return withKeyHint(err, service)
	}
	return presentResult(ctx, cfg, of, false, res)
}
