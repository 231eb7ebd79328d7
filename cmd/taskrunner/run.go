package main

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	taskrunner "github.com/taskops/taskrunner"
	"github.com/taskops/taskrunner/internal/config"
	"github.com/taskops/taskrunner/pkg/history"
)

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		poolSize    int
		historyPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a configured task batch under the worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.Load(configPath)
			if err != nil {
				return err
			}
			unit, err := run.Unit()
			if err != nil {
				return err
			}
			if poolSize <= 0 {
				poolSize = run.PoolSize
			}

			factory := taskrunner.NewFactory(unit)
			sched := taskrunner.NewScheduler(taskrunner.Config{PoolSize: poolSize})

			var recorder *history.Recorder
			if historyPath != "" {
				store, err := history.Open(historyPath)
				if err != nil {
					return err
				}
				defer store.Close()
				recorder = history.NewRecorder(store)
			}

			accepted := 0
			for _, spec := range run.Tasks {
				task, err := factory.Create(spec)
				if err != nil {
					var unknown *taskrunner.UnknownTypeError
					if errors.As(err, &unknown) {
						log.Warn().
							Int64("task_id", spec.TaskID).
							Str("type", unknown.Type).
							Msg("skipping task with unknown type")
						continue
					}
					return err
				}
				sched.AddTask(task)
				if recorder != nil {
					task.Attach(recorder)
				}
				accepted++
			}
			if accepted == 0 {
				return errors.New("no runnable tasks in config")
			}

			if err := sched.RunAll(cmd.Context()); err != nil {
				return errors.Wrap(err, "run task batch")
			}
			if failed := sched.FailedCount(); failed > 0 {
				return errors.Errorf("%d of %d task(s) failed", failed, accepted)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "tasks.yaml", "run config file (yaml or json)")
	cmd.Flags().IntVar(&poolSize, "pool-size", 0, "override the config's worker pool size")
	cmd.Flags().StringVar(&historyPath, "history-db", "", "record status transitions to this SQLite file")
	return cmd
}
