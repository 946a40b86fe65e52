package main

import (
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jepsen-go/elle-core/internal/logging"
	"github.com/jepsen-go/elle-core/internal/render"
	"github.com/jepsen-go/elle-core/pkg/anomaly"
	"github.com/jepsen-go/elle-core/pkg/core"
	"github.com/jepsen-go/elle-core/pkg/rwregister"
)

var (
	historyFlag string
	configFlag  string
	logFileFlag string

	modelsFlag    []string
	anomaliesFlag []string
	timeoutFlag   int
	directoryFlag string
	realtimeFlag  bool
	processFlag   bool
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a recorded history against the declared consistency models",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitGlobalLogger(logFileFlag)

			cfg := defaultConfig()
			if configFlag != "" {
				loaded, err := loadConfig(configFlag)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("consistency-models") {
				cfg.ConsistencyModels = modelsFlag
			}
			if cmd.Flags().Changed("anomalies") {
				cfg.Anomalies = anomaliesFlag
			}
			if cmd.Flags().Changed("cycle-search-timeout") {
				cfg.CycleSearchTimeout = timeoutFlag
			}
			if cmd.Flags().Changed("directory") {
				cfg.Directory = directoryFlag
			}
			if cmd.Flags().Changed("realtime") {
				cfg.Realtime = realtimeFlag
			}
			if cmd.Flags().Changed("process") {
				cfg.Process = processFlag
			}

			content, err := ioutil.ReadFile(historyFlag)
			if err != nil {
				return err
			}
			history, err := core.ParseHistory(string(content))
			if err != nil {
				return err
			}

			opts := anomaly.Opts{
				ConsistencyModels:  cfg.ConsistencyModels,
				Anomalies:          cfg.Anomalies,
				CycleSearchTimeout: time.Duration(cfg.CycleSearchTimeout) * time.Millisecond,
				Directory:          cfg.Directory,
			}
			if cfg.Realtime {
				opts.AdditionalGraphs = append(opts.AdditionalGraphs, core.RealtimeGraph)
			}
			if cfg.Process {
				opts.AdditionalGraphs = append(opts.AdditionalGraphs, core.ProcessGraph)
			}

			zap.L().Info("checking history",
				zap.String("file", historyFlag),
				zap.Int("ops", len(history)),
				zap.Strings("models", cfg.ConsistencyModels))

			analysis := rwregister.Check(history, opts)
			printResult(analysis.CheckResult)

			if cfg.Directory != "" {
				if err := render.WriteAnalysis(cfg.Directory, analysis); err != nil {
					return err
				}
				fmt.Printf("reports written to %s\n", cfg.Directory)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&historyFlag, "history", "H", "", "history file in elle text format")
	cmd.MarkFlagRequired("history")
	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "TOML config file")
	cmd.Flags().StringVar(&logFileFlag, "log-file", "./elle-check.log", "log file")
	cmd.Flags().StringSliceVar(&modelsFlag, "consistency-models", []string{"strict-serializable"}, "consistency models the history is expected to satisfy")
	cmd.Flags().StringSliceVar(&anomaliesFlag, "anomalies", nil, "extra anomaly kinds to flag")
	cmd.Flags().IntVar(&timeoutFlag, "cycle-search-timeout", 1000, "cycle search budget per SCC, in milliseconds")
	cmd.Flags().StringVarP(&directoryFlag, "directory", "d", "", "directory for text reports and GraphViz drawings")
	cmd.Flags().BoolVar(&realtimeFlag, "realtime", true, "include the realtime order in the dependency graph")
	cmd.Flags().BoolVar(&processFlag, "process", true, "include the per-process order in the dependency graph")
	return cmd
}

func printResult(result anomaly.CheckResult) {
	switch {
	case result.Valid:
		fmt.Println("valid: true")
	case result.IsUnknown:
		fmt.Println("valid: unknown")
	default:
		fmt.Println("valid: false")
	}
	if len(result.AnomalyTypes) > 0 {
		fmt.Printf("anomaly types: %s\n", strings.Join(result.AnomalyTypes, ", "))
		for _, typ := range result.AnomalyTypes {
			fmt.Printf("  %s: %d case(s)\n", typ, len(result.Anomalies[typ]))
		}
	}
	if len(result.Not) > 0 {
		fmt.Printf("not: %s\n", strings.Join(result.Not, ", "))
	}
	if len(result.AlsoNot) > 0 {
		fmt.Printf("also not: %s\n", strings.Join(result.AlsoNot, ", "))
	}
}
