package main

import (
	"context"
	"errors"
	"fmt"
	"imageconverter/internal/adapters/apiverve"
	"imageconverter/internal/adapters/file"
	"imageconverter/internal/adapters/handler"
	"imageconverter/internal/adapters/sender"
	"imageconverter/internal/config"
	"imageconverter/internal/core/domain"
	"imageconverter/internal/core/domain/command"
	"imageconverter/internal/core/service"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const usage = `usage:
  imageconverter convert --to <format> [flags] <file>...
  imageconverter bot [--config <file>]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "convert":
		err = runConvert(ctx, os.Args[2:])
	case "bot":
		err = runBot(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Msg("imageconverter failed")
		os.Exit(1)
	}
}

func loadConfig(fs *pflag.FlagSet, args []string) (*config.Config, error) {
	configFile := fs.String("config", "", "path to config file (default ./config.toml)")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *logLevel != "" {
		viper.Set("log.level", *logLevel)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}

	config.SetupLogging(cfg.Log)

	return cfg, nil
}

func newClient(cfg *config.Config) *apiverve.Client {
	httpClient := &http.Client{}

	return apiverve.NewClient(cfg.APIVerve.APIKey,
		apiverve.WithEndpoint(cfg.APIVerve.Endpoint),
		apiverve.WithTimeout(cfg.APIVerve.Timeout),
		apiverve.WithMaxPayload(cfg.APIVerve.MaxPayloadBytes),
		apiverve.WithHTTPClient(httpClient),
		apiverve.WithDownloader(file.NewFetcher(httpClient, 0)),
	)
}

func runConvert(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	to := fs.StringP("to", "t", "", "target format: "+formatNames())
	from := fs.StringP("from", "f", "auto", "source format, detected from content when auto")
	width := fs.Int("width", 0, "output width in pixels, requires --height")
	height := fs.Int("height", 0, "output height in pixels, requires --width")
	quality := fs.IntP("quality", "q", 0, "output quality 1-100")
	fs.StringP("out-dir", "o", "", "directory for converted files (default next to the source)")
	fs.IntP("workers", "w", service.DefaultWorkers, "number of concurrent conversions")

	_ = viper.BindPFlag("convert.output_dir", fs.Lookup("out-dir"))
	_ = viper.BindPFlag("convert.workers", fs.Lookup("workers"))

	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return errors.New("no input files")
	}

	target, err := domain.ParseFormat(*to)
	if err != nil {
		return err
	}

	source, err := domain.ParseFormat(*from)
	if err != nil {
		return err
	}

	opts := []domain.RequestOption{domain.WithSourceFormat(source), domain.WithResize(*width, *height)}
	if fs.Changed("quality") {
		opts = append(opts, domain.WithQuality(*quality))
	}

	jobs := make([]service.Job, 0, fs.NArg())
	for _, input := range fs.Args() {
		jobs = append(jobs, service.Job{
			Input:   input,
			Output:  file.OutputPath(input, cfg.Convert.OutputDir, target.Extension()),
			Target:  target,
			Options: opts,
		})
	}

	log.Info().Int("files", len(jobs)).Str("target", target.String()).Msg("starting conversion")

	batch := service.NewBatchConverter(newClient(cfg), file.LocalStore{}, cfg.Convert.Workers)

	var failed int
	for _, res := range batch.ConvertFiles(ctx, jobs) {
		if res.Err != nil {
			failed++
			log.Error().Err(res.Err).Str("input", res.Job.Input).Str("kind", domain.KindOf(res.Err).String()).
				Msg("conversion failed")
			continue
		}
		fmt.Printf("%s -> %s (%s, %d bytes)\n", res.Job.Input, res.Job.Output, res.Format, res.Bytes)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(jobs))
	}

	return nil
}

func runBot(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("bot", pflag.ContinueOnError)

	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	log.Info().Msg("starting imageconverter bot...")

	if cfg.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is not set")
	}

	b, err := bot.New(cfg.Telegram.BotToken, bot.WithDefaultHandler(noOpHandler))
	if err != nil {
		return fmt.Errorf("failed initializing telegram bot: %w", err)
	}

	s := sender.NewTelegram(b)

	authorizer, err := service.NewAuthorizer(s)
	if err != nil {
		return err
	}

	tracker := service.NewUsageTracker(ctx, s)
	fetcher := file.NewFetcher(&http.Client{}, cfg.APIVerve.MaxPayloadBytes)

	registry := &command.Registry{}
	registry.Register(command.NewConvert(newClient(cfg), fetcher, s, s, tracker, "/convert"))
	registry.Register(command.NewFormats(s, "/formats"))

	commandHandler := handler.NewCommand(registry, b, authorizer, cfg.Handler.Timeout)

	b.RegisterHandler(bot.HandlerTypeMessageText, "/", bot.MatchTypePrefix, commandHandler.Handle)
	b.RegisterHandler(bot.HandlerTypePhotoCaption, "/", bot.MatchTypePrefix, commandHandler.Handle)

	log.Info().Strs("commands", registry.ListCommands()).Msg("bot listening")
	b.Start(ctx)

	log.Info().Msg("waiting for running conversions")
	commandHandler.Wait()

	return nil
}

func formatNames() string {
	names := make([]string, 0, len(domain.OutputFormats))
	for _, f := range domain.OutputFormats {
		names = append(names, f.String())
	}

	return strings.Join(names, ", ")
}

func noOpHandler(_ context.Context, _ *bot.Bot, _ *models.Update) {}
