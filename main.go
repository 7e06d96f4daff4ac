package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	Oc "github.com/GMPavanLab/timeseries-analysis/cluster"
	Od "github.com/GMPavanLab/timeseries-analysis/display"
	Oo "github.com/GMPavanLab/timeseries-analysis/obvy"
	Op "github.com/GMPavanLab/timeseries-analysis/pipeline"
	"github.com/GMPavanLab/timeseries-analysis/store"
)

const (
	defaultConfigFile = "input_parameters.json"
	reportFile        = "final_states.txt"
	archiveBatchSize  = 16
)

func main() {
	_ = godotenv.Load(".env")

	cfgPath := defaultConfigFile
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := Oc.LoadConfigFileName(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	// Tracing is optional: without an endpoint configured in the
	// environment the run proceeds untraced.
	shutdown, err := Oo.InitOTelHNY()
	if err != nil {
		slog.Warn("OpenTelemetry disabled", slog.Any("Error", err))
	} else {
		defer shutdown()
	}

	raw, err := Op.LoadMatrixFile(cfg.DataFile)
	if err != nil {
		log.Fatal(err)
	}

	stats := Oo.NewStatsInternal()
	view := Od.NewView(cfg, stats)

	if cfg.ListenAddr != "" {
		go func() {
			if err := view.Serve(cfg.ListenAddr); err != nil {
				slog.Error("Data endpoint failed", slog.Any("Error", err))
			}
		}()
	}

	recorders := []Op.RunRecorder{view}
	var archive *store.Archive
	if cfg.ArchivePath != "" {
		archive, err = store.NewArchive(cfg.ArchivePath, archiveBatchSize)
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			if err := archive.Close(); err != nil {
				slog.Error("Archive close failed", slog.Any("Error", err))
			}
		}()
		recorders = append(recorders, archive)
	}

	// Explore the (window length, smoothing width) space first.
	tauWindows, tSmooths := Op.ParamGrid(cfg, len(raw[0]))
	view.SetTotal(len(tauWindows) * len(tSmooths))
	Op.Sweep(raw, cfg, stats, recorders...)

	// Persist the tail of the sweep now. In serving mode the process
	// blocks below and the deferred close is never reached.
	if archive != nil {
		if err := archive.Flush(); err != nil {
			slog.Error("Archive flush failed", slog.Any("Error", err))
		}
	}

	// Then the full analysis at the chosen parameters, with the report.
	out, err := os.Create(reportFile)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	res, err := Op.Analyze(raw, cfg, &Oc.TextReporter{W: out})
	if err != nil {
		log.Fatal(err)
	}
	view.SetFinal(res.States, res.Summary)

	slog.Info("Analysis finished",
		slog.Int("States", res.Summary.NumStates),
		slog.Float64("Unclassified", res.Summary.Unclassified),
		slog.String("Report", reportFile))

	if cfg.ListenAddr != "" {
		slog.Info("Serving results", slog.String("Addr", cfg.ListenAddr))
		select {}
	}
}
