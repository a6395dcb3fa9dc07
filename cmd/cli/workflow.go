package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/conductor-worker/internal/core/config"
	"github.com/theblitlabs/conductor-worker/internal/core/ports"
	"github.com/theblitlabs/conductor-worker/internal/utils/cliutil"
	"github.com/theblitlabs/conductor-worker/internal/utils/errorutil"
	"github.com/theblitlabs/conductor-worker/internal/worker"
	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

func NewWorkflowCommand() *cobra.Command {
	log := logger.WithComponent("cli")

	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Start, inspect and terminate workflows",
	}

	cmd.PersistentFlags().String("server-url", "", "Conductor API base URL")

	cmd.AddCommand(cliutil.CreateCommand(cliutil.CommandConfig{
		Use:     "start <name>",
		Short:   "Start a workflow and print its id",
		Example: `  conductor-worker workflow start transcode --version 2 --input '{"file":"a.mp4"}'`,
		Args:    cobra.ExactArgs(1),
		RunFunc: runWorkflowStart,
		Flags: map[string]cliutil.Flag{
			"version": {
				Type:        cliutil.FlagTypeInt,
				Description: "Workflow definition version (0 for the latest)",
			},
			"input": {
				Type:          cliutil.FlagTypeString,
				Description:   "Workflow input as a JSON object",
				DefaultString: "{}",
			},
		},
	}, log))

	cmd.AddCommand(cliutil.CreateCommand(cliutil.CommandConfig{
		Use:     "get <workflow-id>",
		Short:   "Print a workflow as JSON",
		Args:    cobra.ExactArgs(1),
		RunFunc: runWorkflowGet,
		Flags: map[string]cliutil.Flag{
			"include-tasks": {
				Type:        cliutil.FlagTypeBool,
				Description: "Include the workflow tasks",
			},
		},
	}, log))

	cmd.AddCommand(cliutil.CreateCommand(cliutil.CommandConfig{
		Use:     "terminate <workflow-id>",
		Short:   "Terminate a running workflow",
		Args:    cobra.ExactArgs(1),
		RunFunc: runWorkflowTerminate,
		Flags: map[string]cliutil.Flag{
			"reason": {
				Type:        cliutil.FlagTypeString,
				Description: "Reason recorded on the workflow",
			},
		},
	}, log))

	return cmd
}

func workflowClient(cmd *cobra.Command) (ports.WorkflowClient, error) {
	cfg, err := config.GetConfigManager().GetConfig()
	if err != nil {
		return nil, errorutil.WrapError(err, "failed to load config")
	}

	serverURL := cfg.Server.URL
	if flag := cmd.Flag("server-url"); flag != nil && flag.Changed {
		serverURL = flag.Value.String()
	}
	return worker.NewHTTPWorkflowClient(serverURL, cfg.Server.Timeout), nil
}

func runWorkflowStart(cmd *cobra.Command, args []string) error {
	version, err := cmd.Flags().GetInt("version")
	if err != nil {
		return err
	}
	rawInput, err := cmd.Flags().GetString("input")
	if err != nil {
		return err
	}

	var input map[string]interface{}
	if err := json.Unmarshal([]byte(rawInput), &input); err != nil {
		return errorutil.WrapError(err, "invalid --input")
	}

	client, err := workflowClient(cmd)
	if err != nil {
		return err
	}

	id, err := client.StartWorkflow(cmd.Context(), args[0], version, input)
	if err != nil {
		return errorutil.WrapError(err, "failed to start workflow %s", args[0])
	}

	log := logger.WithComponent("cli")
	log.Info().Str("workflow", args[0]).Str("workflow_id", id).Msg("Workflow started")
	_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
	return err
}

func runWorkflowGet(cmd *cobra.Command, args []string) error {
	includeTasks, err := cmd.Flags().GetBool("include-tasks")
	if err != nil {
		return err
	}

	client, err := workflowClient(cmd)
	if err != nil {
		return err
	}

	wf, err := client.GetWorkflow(cmd.Context(), args[0], includeTasks)
	if err != nil {
		return errorutil.WrapError(err, "failed to get workflow %s", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(wf)
}

func runWorkflowTerminate(cmd *cobra.Command, args []string) error {
	reason, err := cmd.Flags().GetString("reason")
	if err != nil {
		return err
	}

	client, err := workflowClient(cmd)
	if err != nil {
		return err
	}

	if err := client.TerminateWorkflow(cmd.Context(), args[0], reason); err != nil {
		return errorutil.WrapError(err, "failed to terminate workflow %s", args[0])
	}

	log := logger.WithComponent("cli")
	log.Info().Str("workflow_id", args[0]).Msg("Workflow terminated")
	return nil
}
