// Command dtq-worker polls a dtq-server for work and executes it: a
// flat register/pull/execute/report loop.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jgirmay/dtq/internal/dtqclient"
	"github.com/jgirmay/dtq/internal/taskexec"
)

const pollInterval = 250 * time.Millisecond

type registerWorkerRequest struct {
	WorkerID string `json:"worker_id"`
}

type heartbeatRequest struct {
	WorkerID string `json:"worker_id"`
}

type taskView struct {
	TaskID  string         `json:"task_id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type pullResponse struct {
	Task *taskView `json:"task"`
}

type reportRequest struct {
	WorkerID string         `json:"worker_id"`
	TaskID   string         `json:"task_id"`
	OK       bool           `json:"ok"`
	Result   map[string]any `json:"result"`
	Error    string         `json:"error"`
}

func main() {
	serverBase := getEnv("DTQ_SERVER_BASE", "http://127.0.0.1:8000")
	workerID := getEnv("DTQ_WORKER_ID", "worker-1")
	workerKey := getEnv("DTQ_WORKER_API_KEY", "worker-dev-key")

	client := dtqclient.New(serverBase, workerKey)

	log.Printf("[INIT] Registering as %s with %s", workerID, serverBase)
	if err := client.Post("/worker/register", registerWorkerRequest{WorkerID: workerID}, nil); err != nil {
		log.Fatalf("Failed to register: %v", err)
	}

	ctx := context.Background()
	for {
		var resp pullResponse
		if err := client.Post("/worker/pull", heartbeatRequest{WorkerID: workerID}, &resp); err != nil {
			log.Printf("[WARN] pull failed: %v", err)
			time.Sleep(pollInterval)
			continue
		}

		if resp.Task == nil {
			time.Sleep(pollInterval)
			continue
		}

		task := resp.Task
		log.Printf("[WORK] running task_id=%s type=%s", task.TaskID, task.Type)

		result, err := taskexec.Execute(ctx, task.Type, task.Payload)
		report := reportRequest{WorkerID: workerID, TaskID: task.TaskID, OK: err == nil}
		if err != nil {
			report.Error = err.Error()
		} else {
			report.Result = result
		}

		if err := client.Post("/worker/report", report, nil); err != nil {
			log.Printf("[WARN] report failed for task_id=%s: %v", task.TaskID, err)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
