package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"genstudio/internal/ai"
	cfgpkg "genstudio/internal/config"
	"genstudio/internal/credential"
)

type catalogClient interface {
	Voices(ctx context.Context) ([]ai.ElevenLabsVoice, error)
	SpeechModels(ctx context.Context) ([]ai.ElevenLabsModel, error)
}

var newCatalogClient = func(cfg cfgpkg.Config, key string) (catalogClient, error) {
	return ai.NewElevenLabs(key, ai.WithElevenLabsBaseURL(cfg.ElevenLabsBaseURL))
}

func catalogSetup(name string, args []string) (catalogClient, error) {
	var cf commonFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addCommonFlags(fs, &cf)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	setupLogger(cf.logLevel)
	cfg, err := loadConfig(cf, cfgpkg.Overrides{})
	if err != nil {
		return nil, err
	}
	key, err := resolveKey(cfg, credential.ElevenLabs)
	if err != nil {
		return nil, err
	}
	return newCatalogClient(cfg, key)
}

// genstudio voices
func cmdVoices(args []string) error {
	client, err := catalogSetup("voices", args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	voices, err := client.Voices(context.Background())
	if err != nil {
		return withKeyHint(err, credential.ElevenLabs)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VOICE ID\tNAME\tCATEGORY")
	for _, v := range voices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.VoiceID, v.Name, v.Category)
	}
	return tw.Flush()
}

// genstudio models
func cmdModels(args []string) error {
	client, err := catalogSetup("models", args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	models, err := client.SpeechModels(context.Background())
	if err != nil {
		return withKeyHint(err, credential.ElevenLabs)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL ID\tNAME")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\n", m.ModelID, m.Name)
	}
	return tw.Flush()
}
