// Package example embeds a small sample data file used by the package's
// test to demonstrate a full dataprofiler.RunProfile call end to end.
package example

import "embed"

//go:embed sample.csv
var sampleFS embed.FS

// SampleCSV returns the embedded sample file's bytes.
func SampleCSV() ([]byte, error) {
	return sampleFS.ReadFile("sample.csv")
}
