package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgnsrekt/announcer/tts"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

var listenMode string

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Speak lines read from stdin",
	Long: paragraph(fmt.Sprintf("\n%s every line read from stdin. A new line interrupts the previous one; lines arriving faster than tts.listen.rate are held back.",
		keyword("Speak"))),
	Example: paragraph("tail -f build.log | announcer listen --mode notify"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reason, err := parseMode(listenMode)
		if err != nil {
			return err
		}

		a, err := newApp(viper.GetViper())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		ctx, cancel := signalContext(cmd)
		defer cancel()

		go func() {
			if err := a.store.Watch(ctx); err != nil {
				a.logger.Warn("Config changes will not be picked up", "err", err)
			}
		}()

		d, err := a.dispatcher(ctx)
		if err != nil {
			a.logger.Warn("Speech unavailable", "engine", a.cfg.Engine, "err", err)
			fmt.Fprintln(cmd.ErrOrStderr(), warning("speech unavailable:"), err)
			return nil
		}

		if term.IsTerminal(int(os.Stdin.Fd())) { //nolint:gosec
			fmt.Fprintln(cmd.ErrOrStderr(), faint("Type lines to speak, Ctrl-D to finish."))
		}

		limiter := rate.NewLimiter(rate.Limit(a.cfg.Listen.Rate), a.cfg.Listen.Burst)
		if err := listen(ctx, cmd.InOrStdin(), limiter, func(text string) {
			request(d, tts.SpeechRequest{Text: text, Reason: reason})
		}); err != nil {
			return err
		}

		if err := waitIdle(ctx, d); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	listenCmd.Flags().StringVarP(&listenMode, "mode", "m", "announce", "how lines are spoken: announce or notify")
}

func parseMode(mode string) (tts.Reason, error) {
	switch strings.ToLower(mode) {
	case "announce", "announcement":
		return tts.ReasonAnnouncement, nil
	case "notify", "echo":
		return tts.ReasonScreenReaderEcho, nil
	default:
		return 0, fmt.Errorf("unknown mode %q: use announce or notify", mode)
	}
}

// listen calls speak for every non-blank line of r, no faster than limiter
// allows. It returns nil at EOF or when ctx is cancelled.
func listen(ctx context.Context, r io.Reader, limiter *rate.Limiter, speak func(string)) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			speak(line)
		}
	}
}
