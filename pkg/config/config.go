package config

import (
	"fmt"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replicate/rangefetch/pkg/download"
	"github.com/replicate/rangefetch/pkg/logging"
	"github.com/replicate/rangefetch/pkg/optname"
)

const (
	ConsumerFile = "file"
	ConsumerNull = "null"

	envPrefix = "RANGEFETCH"
)

func AddRootPersistentFlags(cmd *cobra.Command) error {
	// Persistent Flags (applies to all commands/subcommands)
	cmd.PersistentFlags().String(optname.APIURL, "", "Base URL of the download API")
	cmd.PersistentFlags().String(optname.Token, "", "Access token presented to the download API")
	cmd.PersistentFlags().String(optname.WorkPackageID, "", "Work package to exchange the access token against (optional)")
	cmd.PersistentFlags().IntP(optname.Concurrency, "c", runtime.GOMAXPROCS(0)*4, "Maximum number of parts downloaded concurrently")
	cmd.PersistentFlags().StringP(optname.PartSize, "p", humanize.IBytes(download.DefaultPartSize), "Size of each downloaded part (e.g. 16MiB, 16M is 16,000,000 bytes)")
	cmd.PersistentFlags().Int(optname.QueueDepth, 0, "Number of fetched parts that may wait for the writer (0 = same as --concurrency)")
	cmd.PersistentFlags().Duration(optname.MaxWaitTime, 60*time.Second, "Maximum time to wait for a file to be staged, format is <number><unit>, e.g. 2m")
	cmd.PersistentFlags().Duration(optname.ConnTimeout, 5*time.Second, "Timeout for establishing a connection, format is <number><unit>, e.g. 10s")
	cmd.PersistentFlags().IntP(optname.Retries, "r", 5, "Number of retries when a request fails")
	cmd.PersistentFlags().Int(optname.MaxConnPerHost, 0, "Maximum number of connections per host (0 = unlimited)")
	cmd.PersistentFlags().Bool(optname.RefreshURL, false, "Resolve a fresh download URL for every part")
	cmd.PersistentFlags().BoolP(optname.Force, "f", false, "Force download, overwriting existing file")
	cmd.PersistentFlags().StringSlice(optname.Resolve, []string{}, "Resolve hostnames to specific IPs")
	cmd.PersistentFlags().String(optname.OutputConsumer, ConsumerFile, "Output consumer (file, null)")
	cmd.PersistentFlags().Duration(optname.ProgressInterval, 2*time.Second, "How often download progress is logged (0 disables)")
	cmd.PersistentFlags().String(optname.PIDFile, "", "Lock file used to serialize concurrent invocations")
	cmd.PersistentFlags().BoolP(optname.Verbose, "v", false, "Verbose mode (equivalent to --log-level debug)")
	cmd.PersistentFlags().String(optname.LoggingLevel, "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool(optname.ForceHTTP2, false, "Force HTTP/2")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind persistent flags: %w", err)
	}

	// Hidden flags are intended for testing/internal benchmarking only
	if err := cmd.PersistentFlags().MarkHidden(optname.ForceHTTP2); err != nil {
		return fmt.Errorf("failed to hide flag %s: %w", optname.ForceHTTP2, err)
	}
	return nil
}

func PersistentStartupProcessFlags() error {
	if viper.GetBool(optname.Verbose) {
		viper.Set(optname.LoggingLevel, "debug")
	}
	setLogLevel(viper.GetString(optname.LoggingLevel))
	if _, err := ResolveOverridesToMap(viper.GetStringSlice(optname.Resolve)); err != nil {
		return err
	}
	return nil
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// ResolveOverridesToMap converts `--resolve` entries of the form
// <hostname>:<port>:<ip> into a map of host:port to ip:port.
func ResolveOverridesToMap(resolveHosts []string) (map[string]string, error) {
	logger := logging.GetLogger()
	if len(resolveHosts) == 0 {
		return nil, nil
	}
	resolveOverrides := make(map[string]string)
	for _, resolveHost := range resolveHosts {
		split := strings.SplitN(resolveHost, ":", 3)
		if len(split) != 3 {
			return nil, fmt.Errorf("invalid resolve host format, expected <hostname>:port:<ip>, got: %s", resolveHost)
		}
		host, port, addr := split[0], split[1], split[2]
		if net.ParseIP(host) != nil {
			return nil, fmt.Errorf("invalid hostname specified, looks like an IP address: %s", host)
		}
		if net.ParseIP(addr) == nil {
			return nil, fmt.Errorf("invalid IP address: %s", addr)
		}
		hostPort := net.JoinHostPort(host, port)
		target := net.JoinHostPort(addr, port)
		if existing, ok := resolveOverrides[hostPort]; ok && existing != target {
			return nil, fmt.Errorf("duplicate host:port specified: %s", hostPort)
		}
		resolveOverrides[hostPort] = target
	}
	if logger.GetLevel() == zerolog.DebugLevel {
		for key, elem := range resolveOverrides {
			logger.Debug().Str("host_port", key).Str("resolve_target", elem).Msg("Config")
		}
	}
	return resolveOverrides, nil
}

// PartSize parses the humanized --part-size value.
func PartSize() (int64, error) {
	partSize, err := humanize.ParseBytes(viper.GetString(optname.PartSize))
	if err != nil {
		return 0, fmt.Errorf("unable to parse part size: %w", err)
	}
	if partSize == 0 {
		return 0, fmt.Errorf("part size must be greater than zero")
	}
	return int64(partSize), nil
}

// QueueDepth returns the configured queue depth, defaulting to the
// concurrency limit.
func QueueDepth() int {
	if depth := viper.GetInt(optname.QueueDepth); depth > 0 {
		return depth
	}
	return viper.GetInt(optname.Concurrency)
}

// ProgressInterval returns the interval between progress log lines. A
// negative value disables progress logging.
func ProgressInterval() time.Duration {
	interval := viper.GetDuration(optname.ProgressInterval)
	if interval <= 0 {
		return -1
	}
	return interval
}
