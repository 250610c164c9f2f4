package builder

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"

	"github.com/mycok/uArchive/resource"
	"github.com/mycok/uArchive/transport"
)

// Config defines configurations for a page archive builder.
type Config struct {
	// An API for resolving a URL to raw resource data. If not specified,
	// a default HTTP transport client will be used instead.
	Fetcher resource.Fetcher

	// An API for persisting resource bytes. If not specified, the
	// operating system filesystem will be used instead.
	FS resource.FileSystem

	// A clock instance for generating time-related events such as the
	// archive Date header. If not specified, the default wall-clock
	// will be used instead.
	Clock clock.Clock

	// The number of concurrent workers used for fetching sibling
	// resources. Values below 2 keep the crawl sequential and fully
	// deterministic.
	FetchWorkers int

	// UseTitleAsFilename derives download file names from the HTML
	// title instead of the URL when possible.
	UseTitleAsFilename bool

	// ForcedEncoding, together with ForcedEncodingName, overrides the
	// transport-detected text encoding of every fetched resource.
	ForcedEncoding     encoding.Encoding
	ForcedEncodingName string

	// SavedBy, Generator and Version identify the archive producer in
	// the archive header block.
	SavedBy   string
	Generator string
	Version   string

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.Fetcher == nil {
		config.Fetcher = transport.NewClient(transport.Config{})
	}

	if config.FS == nil {
		config.FS = resource.OSFileSystem()
	}

	if config.Clock == nil {
		config.Clock = clock.WallClock
	}

	if config.FetchWorkers < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for fetch workers, must be >= 0"))
	}

	if config.FetchWorkers == 0 {
		config.FetchWorkers = 1
	}

	if (config.ForcedEncoding == nil) != (config.ForcedEncodingName == "") {
		err = multierror.Append(err, fmt.Errorf(
			"forced encoding and forced encoding name must be provided together",
		))
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
