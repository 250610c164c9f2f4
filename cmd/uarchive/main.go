package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/mycok/uArchive/builder"
	"github.com/mycok/uArchive/resource"
	"github.com/mycok/uArchive/transport"
	"github.com/mycok/uArchive/transport/privnet"
)

const appName = "uArchive"

var storageModes = map[string]resource.StorageMode{
	"memory": resource.Memory,
	"temp":   resource.DiskTemporary,
	"disk":   resource.DiskPermanent,
}

func main() {
	host, _ := os.Hostname()
	// Instantiate a root logger shared by all components.
	rootLogger := logrus.New()
	logger := rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"host": host,
	})

	if err := run(logger); err != nil {
		logger.WithField("err", err).Error("archiving failed")

		os.Exit(1)
	}
}

func run(logger *logrus.Entry) error {
	var (
		pageURL      string
		outPath      string
		mode         string
		storage      string
		userAgent    string
		workers      int
		useTitle     bool
		allowPrivate bool
	)

	flag.StringVar(&pageURL, "url", "", "URL of the page to archive")
	flag.StringVar(&outPath, "out", "", "Destination file path")
	flag.StringVar(
		&mode, "mode", "archive",
		"Save mode: page | text | complete | archive",
	)
	flag.StringVar(
		&storage, "storage", "memory",
		"Resource staging for archive mode: memory | temp | disk",
	)
	flag.StringVar(
		&userAgent, "user-agent", "",
		"User-Agent header sent with every request",
	)
	flag.IntVar(
		&workers, "workers", runtime.NumCPU(),
		"Number of workers for fetching page resources.[defaults to number of CPU's]",
	)
	flag.BoolVar(
		&useTitle, "title-filename", false,
		"Derive file names from the page title instead of the URL",
	)
	flag.BoolVar(
		&allowPrivate, "allow-private", false,
		"Permit fetching from private network addresses",
	)
	flag.Parse()

	if pageURL == "" || outPath == "" {
		flag.Usage()

		return fmt.Errorf("both -url and -out are required")
	}

	clientConfig := transport.Config{UserAgent: userAgent}
	if !allowPrivate {
		detector, err := privnet.NewDetector()
		if err != nil {
			return err
		}

		clientConfig.Detector = detector
	}

	archiver, err := builder.New(builder.Config{
		Fetcher:            transport.NewClient(clientConfig),
		FetchWorkers:       workers,
		UseTitleAsFilename: useTitle,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	switch mode {
	case "page":
		_, err = archiver.SavePage(outPath, pageURL)
	case "text":
		_, err = archiver.SavePageText(outPath, pageURL)
	case "complete":
		_, err = archiver.SavePageComplete(outPath, pageURL)
	case "archive":
		storageMode, exists := storageModes[storage]
		if !exists {
			return fmt.Errorf("unknown storage %q", storage)
		}

		_, err = archiver.SavePageArchive(outPath, storageMode, pageURL)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	return err
}
