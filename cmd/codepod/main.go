package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	clientsync "github.com/codepod-dev/codepod/internal/client/sync"
	"github.com/codepod-dev/codepod/internal/sdk"
	"github.com/codepod-dev/codepod/internal/utils"
	"github.com/codepod-dev/codepod/internal/version"
)

const defaultServerURL = "http://localhost:8080"

var rootCmd = &cobra.Command{
	Use:     "codepod",
	Short:   "Codepod workspace CLI",
	Version: version.Detailed(),
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		serverURL, _ := cmd.Flags().GetString("server")
		name, _ := cmd.Flags().GetString("name")

		client, err := sdk.New(serverURL)
		if err != nil {
			return err
		}

		ws, err := client.Workspace.Create(cmd.Context(), name)
		if err != nil {
			return err
		}

		fmt.Printf("workspace %s created at version %d\n", ws.WorkspaceID, ws.WorkspaceVersion)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync the local directory and run the entrypoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		serverURL, _ := cmd.Flags().GetString("server")
		workspaceID, _ := cmd.Flags().GetString("workspace")
		dir, _ := cmd.Flags().GetString("dir")
		entrypoint, _ := cmd.Flags().GetString("entrypoint")
		wait, _ := cmd.Flags().GetBool("wait")

		if workspaceID == "" {
			return fmt.Errorf("workspace id required")
		}

		dir, err := utils.ResolvePath(dir)
		if err != nil {
			return err
		}

		local, err := loadTree(dir)
		if err != nil {
			return fmt.Errorf("read %s: %w", dir, err)
		}

		client, err := sdk.New(serverURL)
		if err != nil {
			return err
		}
		engine, err := clientsync.NewEngine(client)
		if err != nil {
			return err
		}

		result, err := engine.Run(cmd.Context(), workspaceID, local, entrypoint)
		if result != nil && result.Aborted() {
			fmt.Println(result.Message)
			return fmt.Errorf("sync round aborted")
		}
		if err != nil {
			return err
		}

		fmt.Printf("workspace at version %d (%d changes)\n", result.WorkspaceVersion, result.Changes)
		if result.JobID == "" {
			return nil
		}
		fmt.Printf("job %s submitted\n", result.JobID)

		if !wait {
			return nil
		}
		job, err := client.Exec.Wait(cmd.Context(), result.JobID, 2*time.Second)
		if err != nil {
			return err
		}
		if job.Status == sdk.JobFailed {
			return fmt.Errorf("job failed: %s", job.Error)
		}
		fmt.Println(job.Output)
		return nil
	},
}

// loadTree reads the working directory into workspace form, folders
// included.
func loadTree(dir string) ([]*clientsync.FileState, error) {
	var states []*clientsync.FileState
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		wsPath := utils.NormalizeWorkspacePath(rel)

		if d.IsDir() {
			states = append(states, &clientsync.FileState{
				Path: wsPath,
				Kind: sdk.KindFolder,
			})
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		states = append(states, &clientsync.FileState{
			Path:    wsPath,
			Kind:    sdk.KindFile,
			Content: content,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

func init() {
	rootCmd.PersistentFlags().StringP("server", "s", defaultServerURL, "Codepod server URL")

	createCmd.Flags().StringP("name", "n", "", "Workspace name")

	runCmd.Flags().StringP("workspace", "w", "", "Workspace id")
	runCmd.Flags().StringP("dir", "d", ".", "Local directory to sync")
	runCmd.Flags().StringP("entrypoint", "e", "", "Workspace file to execute after sync")
	runCmd.Flags().Bool("wait", false, "Wait for the job to finish and print its output")

	rootCmd.AddCommand(createCmd, runCmd)
}

func main() {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
