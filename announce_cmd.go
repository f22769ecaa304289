package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgnsrekt/announcer/tts"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	announceCmd = &cobra.Command{
		Use:   "announce TEXT...",
		Short: "Speak an announcement",
		Long: paragraph(fmt.Sprintf("\n%s the text unless announcements are disabled in the config file or with --no-announce.",
			keyword("Speak"))),
		Example: paragraph("announcer announce \"Build finished\""),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return speakArgs(cmd, args, tts.ReasonAnnouncement)
		},
	}

	notifyCmd = &cobra.Command{
		Use:   "notify TEXT...",
		Short: "Echo text for a screen reader user",
		Long: paragraph(fmt.Sprintf("\n%s the text only while a screen reader is running, or when --screen-reader=on.",
			keyword("Speak"))),
		Example: paragraph("announcer notify \"3 results\"\nannouncer notify --screen-reader on \"Saved\""),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return speakArgs(cmd, args, tts.ReasonScreenReaderEcho)
		},
	}
)

// signalContext is cancelled on interrupt or termination.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// request routes text to the dispatcher operation for reason.
func request(d *tts.Dispatcher, req tts.SpeechRequest) {
	switch req.Reason {
	case tts.ReasonScreenReaderEcho:
		d.ScreenReaderNotify(req.Text)
	default:
		d.Announce(req.Text)
	}
}

func speakArgs(cmd *cobra.Command, args []string, reason tts.Reason) error {
	a, err := newApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	ctx, cancel := signalContext(cmd)
	defer cancel()

	d, err := a.dispatcher(ctx)
	if err != nil {
		a.logger.Warn("Speech unavailable", "engine", a.cfg.Engine, "err", err)
		fmt.Fprintln(cmd.ErrOrStderr(), warning("speech unavailable:"), err)
		return nil
	}

	request(d, tts.SpeechRequest{Text: strings.Join(args, " "), Reason: reason})

	if err := waitIdle(ctx, d); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
