package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"genstudio/internal/ai"
	cfgpkg "genstudio/internal/config"
	"genstudio/internal/credential"
)

// stdin is read by "key set" when no value is given.
var stdin io.Reader = os.Stdin

var newVerifier = func(cfg cfgpkg.Config, service, key string) (ai.KeyVerifier, error) {
	switch service {
	case credential.ElevenLabs:
		return ai.NewElevenLabs(key, ai.WithElevenLabsBaseURL(cfg.ElevenLabsBaseURL))
	case credential.OpenAI:
		return ai.New(key, cfg.OpenAIBaseURL, nil)
	case credential.Novita:
		return ai.NewNovita(key, ai.WithNovitaBaseURL(cfg.NovitaBaseURL))
	default:
		return nil, fmt.Errorf("key verification is not supported for %s", service)
	}
}

// genstudio key <set|get|delete|verify> <service> [value]
func cmdKey(args []string) error {
	var cf commonFlags
	var verify bool
	fs := flag.NewFlagSet("key", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addCommonFlags(fs, &cf)
	fs.BoolVar(&verify, "verify", false, "With set: verify the key before saving it")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: genstudio key [flags] <set|get|delete|verify> <service> [value]")
		fmt.Fprintln(fs.Output(), "Services: elevenlabs, openai, huggingface, novita")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	setupLogger(cf.logLevel)

	rest := fs.Args()
	if len(rest) < 2 {
		fs.Usage()
		return errors.New("key: action and service are required")
	}
	action, service := rest[0], strings.ToLower(strings.TrimSpace(rest[1]))
	if _, ok := keyEnvNames[service]; !ok {
		return fmt.Errorf("unknown service: %s", rest[1])
	}

	cfg, err := loadConfig(cf, cfgpkg.Overrides{})
	if err != nil {
		return err
	}
	store, err := newCredentialStore(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch action {
	case "set":
		var value string
		if len(rest) > 2 {
			value = rest[2]
		} else {
			value, err = readLine(stdin)
			if err != nil {
				return err
			}
		}
		value = strings.TrimSpace(value)
		if verify && value != "" {
			if err := verifyKey(ctx, cfg, service, value); err != nil {
				return err
			}
		}
		if err := store.Set(service, value); err != nil {
			return err
		}
		if value == "" {
			fmt.Fprintf(stdout, "%s key removed\n", service)
		} else {
			fmt.Fprintf(stdout, "%s key saved\n", service)
		}
		return nil
	case "get":
		if v := envKey(cfg.Keys, service); v != "" {
			fmt.Fprintf(stdout, "%s (from %s)\n", maskKey(v), keyEnvNames[service])
			return nil
		}
		v, ok, err := store.Get(service)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no %s key stored", service)
		}
		fmt.Fprintln(stdout, maskKey(v))
		return nil
	case "delete":
		if err := store.Delete(service); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s key removed\n", service)
		return nil
	case "verify":
		key, err := resolveKey(cfg, service)
		if err != nil {
			return err
		}
		if err := verifyKey(ctx, cfg, service, key); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s key is valid\n", service)
		return nil
	default:
		return fmt.Errorf("unknown key action: %s", action)
	}
}

func verifyKey(ctx context.Context, cfg cfgpkg.Config, service, key string) error {
	v, err := newVerifier(cfg, service, key)
	if err != nil {
		return err
	}
	ok, err := v.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verify %s key: %w", service, err)
	}
	if !ok {
		return fmt.Errorf("%s rejected the key", service)
	}
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// maskKey keeps the first and last four characters of long keys.
func maskKey(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", len(v)-8) + v[len(v)-4:]
}
