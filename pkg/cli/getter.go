package cli

import (
	"fmt"

	"github.com/spf13/viper"
	"golang.org/x/sync/semaphore"

	rangefetch "github.com/replicate/rangefetch/pkg"
	"github.com/replicate/rangefetch/pkg/api"
	"github.com/replicate/rangefetch/pkg/client"
	"github.com/replicate/rangefetch/pkg/config"
	"github.com/replicate/rangefetch/pkg/consumer"
	"github.com/replicate/rangefetch/pkg/download"
	"github.com/replicate/rangefetch/pkg/optname"
	"github.com/replicate/rangefetch/pkg/staging"
)

// NewGetter assembles the download pipeline from the current configuration.
func NewGetter() (*rangefetch.Getter, error) {
	apiURL := viper.GetString(optname.APIURL)
	if apiURL == "" {
		return nil, fmt.Errorf("--%s is required", optname.APIURL)
	}
	resolveOverrides, err := config.ResolveOverridesToMap(viper.GetStringSlice(optname.Resolve))
	if err != nil {
		return nil, err
	}
	partSize, err := config.PartSize()
	if err != nil {
		return nil, err
	}
	consumerName := viper.GetString(optname.OutputConsumer)
	var out consumer.Consumer
	switch consumerName {
	case config.ConsumerFile:
		out = &consumer.FileWriter{}
	case config.ConsumerNull:
		out = &consumer.NullWriter{}
	default:
		return nil, fmt.Errorf("invalid output consumer specified: %s", consumerName)
	}
	if viper.GetBool(optname.Force) {
		out.EnableOverwrite()
	}

	httpClient := client.NewHTTPClient(client.Options{
		ForceHTTP2:       viper.GetBool(optname.ForceHTTP2),
		MaxRetries:       viper.GetInt(optname.Retries),
		ConnectTimeout:   viper.GetDuration(optname.ConnTimeout),
		MaxConnPerHost:   viper.GetInt(optname.MaxConnPerHost),
		ResolveOverrides: resolveOverrides,
	})
	apiClient := api.NewClient(httpClient)
	authorizer := &api.TokenAuthorizer{
		HTTPClient:    httpClient,
		BaseURL:       apiURL,
		Token:         viper.GetString(optname.Token),
		WorkPackageID: viper.GetString(optname.WorkPackageID),
	}
	resolver := &staging.Resolver{
		Authorizer: authorizer,
		URLs:       apiClient,
		MaxWait:    viper.GetDuration(optname.MaxWaitTime),
	}

	concurrency := viper.GetInt(optname.Concurrency)
	downloader := &download.Downloader{
		Client:    httpClient,
		Stager:    resolver,
		Envelopes: &api.Envelopes{Authorizer: authorizer, Client: apiClient},
		Options: download.Options{
			MaxConcurrency:   concurrency,
			PartSize:         partSize,
			QueueDepth:       config.QueueDepth(),
			ProgressInterval: config.ProgressInterval(),
		},
	}
	if concurrency > 0 {
		// shared by every file downloaded by this process
		downloader.Semaphore = semaphore.NewWeighted(int64(concurrency))
	}
	if viper.GetBool(optname.RefreshURL) {
		downloader.PartURLs = func(fileID string) download.URLSource {
			return resolver.PartURLs(fileID)
		}
	}

	return &rangefetch.Getter{
		Downloader: downloader,
		Consumer:   out,
		Options: rangefetch.Options{
			MaxConcurrentFiles: viper.GetInt(optname.MaxConcurrentFiles),
		},
	}, nil
}
