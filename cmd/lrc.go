package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"HipHopLab/core/lyric"
)

var lrcCmd = &cobra.Command{
	Use:   "lrc",
	Short: "LRC lyric utilities",
}

var lrcFmtCmd = &cobra.Command{
	Use:   "fmt [file]",
	Short: "Normalize an LRC document",
	Long: `Parse an LRC document from a file or stdin and print it back with one
[mm:ss.cc] timestamp per line. Lines without a timestamp are dropped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		lines := lyric.Parse(text)
		if len(lines) == 0 {
			return lyric.ErrNoLyrics
		}
		fmt.Fprintln(cmd.OutOrStdout(), lyric.Format(lines))
		return nil
	},
}

var lrcStripCmd = &cobra.Command{
	Use:   "strip [file]",
	Short: "Print the lyric text without timestamps",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lyric.StripTimestamps(text), "\n"))
		return nil
	},
}

func init() {
	lrcCmd.AddCommand(lrcFmtCmd, lrcStripCmd)
	rootCmd.AddCommand(lrcCmd)
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read lyrics: %w", err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
