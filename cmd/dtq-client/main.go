// Command dtq-client is a cobra CLI wrapping the client-facing HTTP
// API: submit/get/result/metrics subcommands sharing one App struct.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgirmay/dtq/internal/dtqclient"
)

// App carries shared client state across every subcommand.
type App struct {
	client *dtqclient.Client
	stdout io.Writer
}

func main() {
	app := &App{stdout: os.Stdout}

	var serverBase, clientKey string
	root := &cobra.Command{
		Use:   "dtq-client",
		Short: "Submit and inspect tasks on a dtq-server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.client = dtqclient.New(serverBase, clientKey)
		},
	}
	root.PersistentFlags().StringVar(&serverBase, "server", getEnv("DTQ_SERVER_BASE", "http://127.0.0.1:8000"), "dtq-server base URL")
	root.PersistentFlags().StringVar(&clientKey, "api-key", getEnv("DTQ_CLIENT_API_KEY", "client-dev-key"), "client API key")

	root.AddCommand(app.newSubmitCmd())
	root.AddCommand(app.newGetCmd())
	root.AddCommand(app.newResultCmd())
	root.AddCommand(app.newMetricsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type submitTaskRequest struct {
	Type           string         `json:"type"`
	Payload        map[string]any `json:"payload"`
	MaxRetries     int            `json:"max_retries"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

type submitTaskResponse struct {
	TaskID string `json:"task_id"`
}

type taskView struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type resultResponse struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result"`
	Error  *string        `json:"error"`
}

func (a *App) newSubmitCmd() *cobra.Command {
	var taskType, payloadJSON string
	var maxRetries, timeoutSeconds int
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a task and print its task_id",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{}
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
					return fmt.Errorf("invalid --payload JSON: %w", err)
				}
			}

			var resp submitTaskResponse
			req := submitTaskRequest{Type: taskType, Payload: payload, MaxRetries: maxRetries, TimeoutSeconds: timeoutSeconds}
			if err := a.client.Post("/client/tasks", req, &resp); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Submitted: %s\n", resp.TaskID)

			if !wait {
				return nil
			}
			return a.pollUntilTerminal(resp.TaskID)
		},
	}
	cmd.Flags().StringVar(&taskType, "type", "echo", "task type (add, sleep, echo)")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "task payload as a JSON object")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "maximum retry count")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout-seconds", 30, "advisory task timeout in seconds (the server's lease length does not use it)")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the task reaches a terminal status")
	return cmd
}

func (a *App) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <task_id>",
		Short: "Fetch a task's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t taskView
			if err := a.client.Get("/client/tasks/"+args[0], &t); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Status: %s\n", t.Status)
			return nil
		},
	}
}

func (a *App) newResultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result <task_id>",
		Short: "Fetch a task's result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r resultResponse
			if err := a.client.Get("/client/tasks/"+args[0]+"/result", &r); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Status: %s\n", r.Status)
			fmt.Fprintf(a.stdout, "Result: %v\n", r.Result)
			if r.Error != nil {
				fmt.Fprintf(a.stdout, "Error: %s\n", *r.Error)
			}
			return nil
		},
	}
}

func (a *App) newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print coordinator metrics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var m map[string]any
			if err := a.client.Get("/client/metrics", &m); err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		},
	}
}

func (a *App) pollUntilTerminal(taskID string) error {
	for {
		var t taskView
		if err := a.client.Get("/client/tasks/"+taskID, &t); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Status: %s\n", t.Status)
		if t.Status == "DONE" || t.Status == "FAILED" {
			var r resultResponse
			if err := a.client.Get("/client/tasks/"+taskID+"/result", &r); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Result: %v\n", r.Result)
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
