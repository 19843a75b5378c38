package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"genstudio/internal/job"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		return 0
	}

	sub := args[0]
	switch sub {
	case "audio":
		return exitCode("audio", cmdAudio(args[1:]))
	case "image":
		return exitCode("image", cmdImage(args[1:]))
	case "video":
		return exitCode("video", cmdVideo(args[1:]))
	case "key":
		return exitCode("key", cmdKey(args[1:]))
	case "voices":
		return exitCode("voices", cmdVoices(args[1:]))
	case "models":
		return exitCode("models", cmdModels(args[1:]))
	case "version":
		fmt.Fprintln(stdout, version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n\n", sub)
		printUsage()
		return 2
	}
}

func exitCode(name string, err error) int {
	if err == nil {
		return 0
	}
	var jobErr *job.Error
	if errors.As(err, &jobErr) {
		slog.Error(name+" failed", "err", err, "kind", jobErr.Kind)
	} else {
		slog.Error(name+" failed", "err", err)
	}
	return 1
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `genstudio %s

Usage:
  genstudio <subcommand> [flags]

Subcommands:
  audio    Synthesize speech from text (ElevenLabs or OpenAI)
  image    Generate an image from a prompt (Hugging Face)
  video    Animate a public image into a clip (Novita)
  key      Manage API keys: set, get, delete, verify
  voices   List ElevenLabs voices
  models   List ElevenLabs text-to-speech models
  version  Print version

Run "genstudio <subcommand> -h" for flags.
`, version)
}
