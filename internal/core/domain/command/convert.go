package command

import (
	"context"
	"errors"
	"fmt"
	"imageconverter/internal/core/domain"
	"imageconverter/internal/core/port"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const convertUsage = "usage: /convert <format> [WIDTHxHEIGHT] [q1-100], e.g. /convert webp 800x600 q80"

var (
	dimensionsPattern = regexp.MustCompile(`^(\d+)[xX](\d+)$`)
	qualityPattern    = regexp.MustCompile(`^(?:q|quality=)(\d+)$`)
)

// ConvertArgs are the parsed arguments of a /convert command.
type ConvertArgs struct {
	Target  domain.Format
	Resize  *domain.Dimensions
	Quality *int
}

func (a ConvertArgs) Options() []domain.RequestOption {
	var opts []domain.RequestOption
	if a.Resize != nil {
		opts = append(opts, domain.WithResize(a.Resize.Width, a.Resize.Height))
	}
	if a.Quality != nil {
		opts = append(opts, domain.WithQuality(*a.Quality))
	}

	return opts
}

// ParseConvertArgs reads the target format followed by optional dimensions and quality in any order.
func ParseConvertArgs(args []string) (ConvertArgs, error) {
	if len(args) == 0 {
		return ConvertArgs{}, errors.New("missing target format")
	}

	target, err := domain.ParseFormat(args[0])
	if err != nil {
		return ConvertArgs{}, err
	}
	if !target.IsOutput() {
		return ConvertArgs{}, fmt.Errorf("%s is not an output format", target)
	}

	parsed := ConvertArgs{Target: target}

	for _, arg := range args[1:] {
		arg = strings.ToLower(arg)

		if m := dimensionsPattern.FindStringSubmatch(arg); m != nil {
			w, _ := strconv.Atoi(m[1])
			h, _ := strconv.Atoi(m[2])
			parsed.Resize = &domain.Dimensions{Width: w, Height: h}
			continue
		}

		if m := qualityPattern.FindStringSubmatch(arg); m != nil {
			q, _ := strconv.Atoi(m[1])
			parsed.Quality = &q
			continue
		}

		return ConvertArgs{}, fmt.Errorf("unknown argument %q", arg)
	}

	return parsed, nil
}

type Convert struct {
	converter      port.ImageConverter
	downloader     port.Downloader
	textSender     port.TextSender
	documentSender port.DocumentSender
	limiter        port.UsageLimiter
	command        string
}

func NewConvert(converter port.ImageConverter, downloader port.Downloader, textSender port.TextSender,
	documentSender port.DocumentSender, limiter port.UsageLimiter, command string) *Convert {
	return &Convert{converter: converter, downloader: downloader, textSender: textSender,
		documentSender: documentSender, limiter: limiter, command: command}
}

func (c *Convert) GetCommand() string {
	return c.command
}

func (c *Convert) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	l := log.With().
		Int("messageId", message.ID).
		Int64("chatId", message.ChatID).
		Str("command", c.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if message.FileURL == "" {
		_ = c.textSender.NotifyAndReturnError(ctx, domain.ErrMissingImage, message)
		return nil
	}

	args, err := ParseConvertArgs(ParseCommandArgs(message.Text))
	if err != nil {
		_ = c.textSender.NotifyAndReturnError(ctx, fmt.Errorf("%w\n%s", err, convertUsage), message)
		return nil
	}

	if c.limiter != nil && !c.limiter.CheckLimit(ctx, message.ChatID) {
		l.Info().Msg("daily quota exhausted")
		return nil
	}

	go c.textSender.SendChatAction(ctx, message.ChatID, domain.UploadingDocument)

	source, err := c.downloader.Download(ctx, message.FileURL)
	if err != nil {
		return c.textSender.NotifyAndReturnError(ctx, fmt.Errorf("failed to fetch your image: %w", err), message)
	}

	if c.limiter != nil {
		c.limiter.AddUsage(message.ChatID, int64(len(source)))
	}

	result, err := c.converter.Convert(ctx, domain.NewConversionRequest(source, args.Target, args.Options()...))
	if err != nil {
		l.Warn().Err(err).Msg("conversion failed")
		return c.textSender.NotifyAndReturnError(ctx, describeConversionError(err), message)
	}

	l.Info().Str("format", result.Format().String()).Int("bytes", result.Size()).Msg("converted image")

	err = c.documentSender.SendDocumentReply(ctx, message, outputName(message.FileName, result.Format()), result.Bytes())
	if err != nil {
		return c.textSender.NotifyAndReturnError(ctx, fmt.Errorf("failed to send converted image: %w", err), message)
	}

	return nil
}

// describeConversionError turns a conversion failure into a message fit for the chat.
func describeConversionError(err error) error {
	switch domain.KindOf(err) {
	case domain.InvalidFormat:
		return fmt.Errorf("can't convert that image: %w", err)
	case domain.PayloadTooLarge:
		return fmt.Errorf("image is too large for the converter: %w", err)
	case domain.AuthFailure:
		return fmt.Errorf("the converter rejected this bot's credentials, please tell the admin: %w", err)
	case domain.Timeout:
		return fmt.Errorf("the converter took too long, try again later: %w", err)
	default:
		return fmt.Errorf("failed to convert image: %w", err)
	}
}

func outputName(source string, format domain.Format) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if source == "" || base == "" || base == "." {
		base = "converted"
	}

	return base + format.Extension()
}
