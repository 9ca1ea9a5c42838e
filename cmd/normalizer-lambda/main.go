// normalizer-lambda - обработчик S3-триггера: нормализует загруженный
// JSON-файл матчей в CSV.
//
// Настройки читаются из окружения при холодном старте:
//
//	S3_RAW_BUCKET_NAME, S3_NORMALIZED_BUCKET_NAME, NORMALIZER_CONFIG_PATH,
//	LOG_LEVEL, LOG_FORMAT, RESULT_LOG_REDIS_ADDR, RESULT_LOG_NAME, AUDIT_OUTPUT
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/logging"
	"github.com/ruslano69/match-normalizer/pkg/pipeline"
)

func main() {
	settings, err := etl.LoadSettings("")
	if err != nil {
		fatal("Failed to load settings: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
	})
	if err != nil {
		fatal("Failed to create logger: %v", err)
	}

	p, err := pipeline.Build(context.Background(), settings, logger, pipeline.Options{})
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize normalizer")
		os.Exit(1)
	}

	lambda.Start(NewHandler(p.Orchestrator, logger).Handle)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
