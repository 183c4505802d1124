/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence"
	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/engine"
	pg_listener "github.com/cadencehq/cadence/internal/pg-listener"
	redis_db "github.com/cadencehq/cadence/internal/redis-db"
)

// recordForwarder queues the rows announced by the insert triggers as record events.
type recordForwarder struct {
	queue *cadence.Queue
}

func (f recordForwarder) HandleNotification(ctx context.Context, table, recordID string) error {
	return f.queue.EnqueueEvent(ctx, cadence.RecordEvent{Table: table, RecordID: recordID})
}

func startInsertListener(ctx context.Context, c *cadenceInstance, conf *config.Configuration) {
	if !conf.DataSource.ListenForInserts {
		return
	}
	listener := pg_listener.NewDBListener(pg_listener.ListenerConfig{PgConnStr: conf.DataSource.Dns}, recordForwarder{queue: c.cadence.Queue()})
	go func() {
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			logrus.Errorf("insert listener stopped: %v", err)
		}
	}()
}

// initializeQueues weights the queues; record events are latency sensitive, webhooks are not.
func initializeQueues(conf *config.Configuration) map[string]int {
	return map[string]int{
		conf.Queue.EventQueue:   6,
		conf.Queue.TickQueue:    3,
		conf.Queue.WebhookQueue: 1,
	}
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.AsynqOpt(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		redisOption,
		asynq.Config{
			Concurrency: conf.Queue.Concurrency,
			Queues:      queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				logrus.WithFields(logrus.Fields{"task": task.Type(), "retried": retried}).Errorf("task failed: %v", err)
			}),
		},
	), nil
}

func initializeTaskHandlers(c *cadenceInstance, conf *config.Configuration, mux *asynq.ServeMux) {
	mux.HandleFunc(conf.Queue.EventQueue, c.cadence.ProcessEventTask)
	mux.HandleFunc(conf.Queue.TickQueue, c.cadence.ProcessTickTask)
	mux.HandleFunc(conf.Queue.WebhookQueue, cadence.ProcessWebhook)
}

// scheduledTicks pairs each clock-driven run with its cron spec.
func scheduledTicks(conf *config.Configuration) map[engine.Mode]string {
	return map[engine.Mode]string{
		engine.ModeDaily:  conf.Schedule.DailyCron,
		engine.ModeWeekly: conf.Schedule.WeeklyCron,
	}
}

// initializeScheduler registers the daily and weekly ticks. Scheduled ticks carry no time; the
// worker runs them at its current time in the schedule timezone.
func initializeScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	redisOption, err := redis_db.AsynqOpt(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	loc, err := conf.Schedule.Location()
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(redisOption, &asynq.SchedulerOpts{Location: loc})
	for mode, spec := range scheduledTicks(conf) {
		payload, err := json.Marshal(cadence.Tick{Mode: mode})
		if err != nil {
			return nil, err
		}
		entryID, err := scheduler.Register(spec, asynq.NewTask(conf.Queue.TickQueue, payload),
			asynq.Queue(conf.Queue.TickQueue),
			asynq.MaxRetry(conf.Queue.MaxRetry),
			asynq.Unique(time.Hour),
		)
		if err != nil {
			return nil, fmt.Errorf("register %s tick: %v", mode, err)
		}
		logrus.WithFields(logrus.Fields{"mode": mode, "cron": spec, "entry_id": entryID}).Info("tick scheduled")
	}
	return scheduler, nil
}

func startMonitoring(conf *config.Configuration) error {
	redisOption, err := redis_db.AsynqOpt(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return err
	}
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: redisOption,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			log.Fatalf("could not start asynqmon server: %v", err)
		}
	}()
	return nil
}

// workerCommands defines the "workers" command: queue consumers for record events, ticks and
// webhooks, plus the cron scheduler for the daily and weekly ticks.
func workerCommands(c *cadenceInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start cadence workers and scheduler",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			srv, err := initializeWorkerServer(conf, initializeQueues(conf))
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(c, conf, mux)

			scheduler, err := initializeScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}
			if err := scheduler.Start(); err != nil {
				log.Fatalf("could not start scheduler: %v", err)
			}
			defer scheduler.Shutdown()

			if err := startMonitoring(conf); err != nil {
				log.Fatal(err)
			}
			startInsertListener(ctx, c, conf)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
