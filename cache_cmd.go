package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgnsrekt/announcer/internal/cache"
	"github.com/dgnsrekt/announcer/tts"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var clearCache bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the synthesized audio cache",
	Long: paragraph(fmt.Sprintf("\n%s where synthesized speech is kept and how much space it uses. Only the piper engine caches audio.",
		keyword("Show"))),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := tts.LoadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		dir, err := getAudioCacheDir()
		if err != nil {
			return err
		}
		cc, err := cache.FromConfig(cfg.Cache, dir)
		if err != nil {
			return err
		}

		disk, err := cache.NewDiskCache(nil, cc.Dir, cc.DiskCapacity, cc.CompressionLevel)
		if err != nil {
			return err
		}
		defer disk.Close() //nolint:errcheck

		if clearCache {
			before := disk.Stats()
			if err := disk.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries (%s).\n", before.Items, humanize.Bytes(uint64(before.Size))) //nolint:gosec
			return nil
		}

		writeCacheInfo(cmd.OutOrStdout(), cfg.Cache, disk.Dir(), disk.Stats())
		return nil
	},
}

func writeCacheInfo(w io.Writer, cfg tts.CacheConfig, dir string, s cache.Stats) {
	line := func(name, value string) {
		fmt.Fprintf(w, "  %-15s %s\n", name+":", value)
	}

	fmt.Fprintln(w)
	line("Cache", onOff(cfg.Enabled))
	line("Directory", dir)
	line("Entries", humanize.Comma(int64(s.Items)))
	line("Size", fmt.Sprintf("%s %s", humanize.Bytes(uint64(s.Size)), //nolint:gosec
		faint("of "+humanize.Bytes(uint64(s.Capacity))))) //nolint:gosec
	if cfg.MaxAge > 0 {
		now := time.Now()
		line("Expires after", strings.TrimSpace(humanize.RelTime(now, now.Add(cfg.MaxAge), "", "")))
	}
	fmt.Fprintln(w)
}

func init() {
	cacheCmd.Flags().BoolVar(&clearCache, "clear", false, "remove every cached entry")
}
