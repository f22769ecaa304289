package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dgnsrekt/announcer/tts"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine readiness and speech policy",
	Long: paragraph(fmt.Sprintf("\n%s the selected engine, whether it initialized, and which kinds of speech would currently be spoken.",
		keyword("Report"))),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(viper.GetViper())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		ctx, cancel := signalContext(cmd)
		defer cancel()

		start := time.Now()
		d, initErr := a.dispatcher(ctx)

		writeStatus(cmd.OutOrStdout(), status{
			Config:        a.cfg,
			State:         d.State(),
			InitErr:       initErr,
			InitTook:      time.Since(start),
			Speaking:      d.IsSpeaking(),
			ScreenReaders: a.detector.ActiveServices(),
			ScreenReader:  d.IsAccessibilityActive(),
			Announcements: a.store.AnnouncementsEnabled(),
			ConfigFile:    viper.ConfigFileUsed(),
		})
		return nil
	},
}

// status is a snapshot of the dispatcher and its policy inputs.
type status struct {
	Config        tts.Config
	State         tts.EngineState
	InitErr       error
	InitTook      time.Duration
	Speaking      bool
	ScreenReaders []string
	ScreenReader  bool
	Announcements bool
	ConfigFile    string
}

func writeStatus(w io.Writer, s status) {
	line := func(name, value string) {
		fmt.Fprintf(w, "  %-15s %s\n", name+":", value)
	}

	state := s.State.String()
	switch {
	case s.State == tts.EngineReady:
		state = keyword(state)
	case s.InitErr != nil:
		state = warning(state) + faint(" ("+s.InitErr.Error()+")")
	}

	locale := s.Config.LocaleTag()
	localeSource := "config"
	if locale == language.Und {
		locale = tts.SystemLocale()
		localeSource = "environment"
	}

	fmt.Fprintln(w)
	engine := s.Config.Engine
	if s.Config.Fallback != "" {
		engine += faint(" (fallback: " + s.Config.Fallback + ")")
	}
	line("Engine", engine)
	line("State", state)
	if s.State == tts.EngineReady {
		line("Initialized in", s.InitTook.Round(time.Millisecond).String())
	}
	line("Speaking", yesNo(s.Speaking))
	line("Locale", fmt.Sprintf("%s %s", locale, faint("("+localeSource+")")))
	line("Screen reader", screenReaderSummary(s))
	line("Route", tts.RouteFor(s.ScreenReader).String())
	line("Announcements", onOff(s.Announcements))
	line("Config file", configSummary(s.ConfigFile))
	fmt.Fprintln(w)
}

func screenReaderSummary(s status) string {
	switch s.Config.ScreenReader {
	case tts.ScreenReaderOn, tts.ScreenReaderOff:
		return fmt.Sprintf("%s %s", onOff(s.ScreenReader), faint("(forced)"))
	}
	if len(s.ScreenReaders) == 0 {
		return "none detected"
	}
	return fmt.Sprintf("%s %s", strings.Join(s.ScreenReaders, ", "), faint("(detected)"))
}

func configSummary(path string) string {
	if path == "" {
		return faint("none")
	}
	info, err := os.Stat(path)
	if err != nil {
		return path
	}
	return fmt.Sprintf("%s %s", path, faint(fmt.Sprintf("(%s, modified %s)",
		humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime())))) //nolint:gosec
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func onOff(b bool) string {
	if b {
		return keyword("on")
	}
	return "off"
}
