package main

import (
	"os"

	"github.com/woozymasta/gpsmarker/internal/logger"
	"github.com/woozymasta/gpsmarker/internal/metrics"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `long:"config"           env:"CONFIG_FILE"      description:"Path to configuration file, embedded defaults when empty"`
	DataDir     string `short:"d" long:"data-dir"         env:"DATA_DIR"         description:"Override the data directory from the configuration"`
	MetricsFile string `short:"m" long:"metrics-textfile" env:"METRICS_TEXTFILE" description:"Write metrics to this file in text exposition format on exit"`

	Record  RecordCommand  `command:"record"  description:"Record point or line features interactively"`
	Login   LoginCommand   `command:"login"   description:"Save the uploader credential"`
	Upload  UploadCommand  `command:"upload"  description:"Upload stored collections"`
	Clear   ClearCommand   `command:"clear"   description:"Delete stored collections"`
	Monitor MonitorCommand `command:"monitor" description:"Print the current location fix periodically"`
	Status  StatusCommand  `command:"status"  description:"Summarize stored collections"`
	Export  ExportCommand  `command:"export"  description:"Print a stored collection as JSON or YAML"`
}

var opts Options

func main() {
	_ = godotenv.Load(".env")

	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		opts.Logger.Setup()
		err := cmd.Execute(args)
		if werr := metrics.WriteTextfile(opts.MetricsFile); werr != nil {
			log.Error().Err(werr).Str("path", opts.MetricsFile).Msg("Failed to write metrics textfile")
		}
		return err
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
