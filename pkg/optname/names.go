package optname

const (
	APIURL             = "api-url"
	Concurrency        = "concurrency"
	ConnTimeout        = "connect-timeout"
	Force              = "force"
	ForceHTTP2         = "force-http2"
	LoggingLevel       = "log-level"
	MaxConcurrentFiles = "max-concurrent-files"
	MaxConnPerHost     = "max-conn-per-host"
	MaxWaitTime        = "max-wait-time"
	OutputConsumer     = "output"
	PartSize           = "part-size"
	PIDFile            = "pid-file"
	ProgressInterval   = "progress-interval"
	QueueDepth         = "queue-depth"
	RefreshURL         = "refresh-url"
	Resolve            = "resolve"
	Retries            = "retries"
	Token              = "token"
	Verbose            = "verbose"
	WorkPackageID      = "work-package-id"
)
