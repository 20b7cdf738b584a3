package multifile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"

	rangefetch "github.com/replicate/rangefetch/pkg"
	"github.com/replicate/rangefetch/pkg/cli"
	"github.com/replicate/rangefetch/pkg/config"
	"github.com/replicate/rangefetch/pkg/optname"
)

// A manifest is a file consisting of pairs of file ids and paths:
//
// 7f3c2a    foo/bar.bin
// 91be04    foo/bar/baz.bin
//
// A manifest may contain blank lines and lines starting with '#'.
// The pairs are separated by arbitrary whitespace.

func manifestFile(manifestPath string) (*os.File, error) {
	if manifestPath == "-" {
		return os.Stdin, nil
	}
	if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("manifest file %s does not exist", manifestPath)
	}
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("error opening manifest file %s: %w", manifestPath, err)
	}
	return file, err
}

func parseLine(line string) (fileID, dest string, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("error parsing manifest invalid line format `%s`", line)
	}
	return fields[0], fields[1], nil
}

func parseManifest(file io.Reader) (rangefetch.Manifest, error) {
	manifest := make(rangefetch.Manifest, 0)
	checkDestinations := viper.GetString(optname.OutputConsumer) != config.ConsumerNull

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fileID, dest, err := parseLine(line)
		if err != nil {
			return nil, err
		}

		if checkDestinations {
			if err := cli.EnsureDestinationNotExist(dest); err != nil {
				return nil, err
			}
			manifest, err = manifest.AddEntry(fileID, dest)
		} else {
			// the null consumer never touches dest, duplicates are harmless
			manifest = append(manifest, rangefetch.ManifestEntry{FileID: fileID, Dest: dest})
		}
		if err != nil {
			return nil, fmt.Errorf("error adding file: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	return manifest, nil
}
