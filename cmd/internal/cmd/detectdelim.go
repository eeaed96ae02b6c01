package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/proflow/dataprofiler/ingest/bytesource"
	"github.com/proflow/dataprofiler/ingest/csv"
)

var detectDelimCmd = &cobra.Command{
	Use:   "detect-delimiter <path>",
	Short: "Run only the delimiter detector and print the candidate and confidence",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			_ = cmd.Help()
			return errors.New("need to specify argument <path>")
		}
		result, err := detectDelimiter(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("delimiter=%q confidence=%.4f\n", result.Delimiter, result.Confidence)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectDelimCmd)
}

const detectDelimPrefixBytes = 64 * 1024

func detectDelimiter(path string) (csv.DetectionResult, error) {
	src, err := bytesource.Open(path)
	if err != nil {
		return csv.DetectionResult{}, err
	}
	defer src.Close()

	buf := make([]byte, detectDelimPrefixBytes)
	n, err := io.ReadFull(src, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return csv.DetectionResult{}, err
	}
	return csv.DetectDelimiter(string(buf[:n])), nil
}
