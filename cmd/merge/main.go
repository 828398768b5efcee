package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kjstillabower/climate-impact-dashboard/internal/merge"
	"github.com/kjstillabower/climate-impact-dashboard/internal/observability"
)

func main() {
	logger, err := observability.NewLogger("merge")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	paths := merge.DefaultPaths()
	result, err := merge.Run(paths, logger)
	if err != nil {
		if errors.Is(err, merge.ErrSourceFileMissing) {
			logger.Error(merge.MissingSourceHint(paths), zap.Error(err))
		} else {
			logger.Error("merge failed", zap.Error(err))
		}
		_ = observability.Flush(logger)
		os.Exit(1)
	}

	fmt.Printf("Merged dataset saved to: %s\n", result.Output)
	_ = observability.Flush(logger)
}
