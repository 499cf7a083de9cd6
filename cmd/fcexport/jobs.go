package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	_ "fcexport/internal/export/sources"
	"fcexport/internal/service"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage saved export jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved export jobs",
	RunE:  runJobsList,
}

var jobsCreateFlags struct {
	name          string
	source        string
	layer         string
	out           string
	format        string
	fileName      string
	trigger       string
	triggerConfig string
	disabled      bool
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a repeatable export job",
	Long: `Save an export definition that can be run by name, on a cron
schedule, or whenever the source file changes.

Examples:
  # Manual job
  fcexport jobs create --name landmarks --source /data/city.gpkg --layer TOPO.QatarLandmark --format geojson --out ./exports

  # Nightly at 02:00
  fcexport jobs create --name nightly --source warehouse --layer parcels --format csv --out ./exports \
    --trigger schedule --trigger-config "0 2 * * *"

  # Re-export when the GeoPackage is rewritten
  fcexport jobs create --name on-change --source /data/city.gpkg --layer parcels --format json --out ./exports \
    --trigger file_watch`,
	RunE: runJobsCreate,
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Execute a saved export job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsRun,
}

var jobsEnableCmd = &cobra.Command{
	Use:   "enable <job-id>",
	Short: "Enable a job's trigger",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setJobEnabled(args[0], true) },
}

var jobsDisableCmd = &cobra.Command{
	Use:   "disable <job-id>",
	Short: "Disable a job's trigger without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setJobEnabled(args[0], false) },
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a saved export job and its run history",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsDelete,
}

var jobsHistoryCmd = &cobra.Command{
	Use:   "history <job-id>",
	Short: "Show recent runs of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsHistory,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsCreateCmd, jobsRunCmd, jobsEnableCmd, jobsDisableCmd, jobsDeleteCmd, jobsHistoryCmd)

	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.name, "name", "", "job name")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.source, "source", "", "source location or configured source name")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.layer, "layer", "", "feature class name")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.out, "out", "", "output directory (default from config)")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.format, "format", "", "output format: csv, json, geojson")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.fileName, "file-name", "", "fixed output file name without extension")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.trigger, "trigger", "manual", "trigger type: manual, schedule, file_watch")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.triggerConfig, "trigger-config", "", "cron expression or watched path")
	jobsCreateCmd.Flags().BoolVar(&jobsCreateFlags.disabled, "disabled", false, "create the job disabled")
}

func runJobsList(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	jobs, err := svc.ListJobs()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No saved jobs.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLAYER\tFORMAT\tTRIGGER\tENABLED\tLAST STATUS")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			j.ID, j.Name, j.Request.Layer, j.Request.Format, j.TriggerType, j.Enabled, j.LastStatus)
	}
	return w.Flush()
}

func runJobsCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	outDir := jobsCreateFlags.out
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	job, err := svc.CreateJob(context.Background(), service.CreateExportJobInput{
		Name:          jobsCreateFlags.name,
		Location:      cfg.Resolve(jobsCreateFlags.source),
		Layer:         jobsCreateFlags.layer,
		OutputDir:     outDir,
		Format:        jobsCreateFlags.format,
		FileName:      jobsCreateFlags.fileName,
		TriggerType:   jobsCreateFlags.trigger,
		TriggerConfig: jobsCreateFlags.triggerConfig,
		Enabled:       !jobsCreateFlags.disabled,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created job %s (%s)\n", job.Name, job.ID)
	return nil
}

func runJobsRun(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = svc.RunJob(context.Background(), args[0])
	return err
}

func setJobEnabled(id string, enabled bool) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	job, err := svc.GetJob(id)
	if err != nil {
		return err
	}
	err = svc.UpdateJob(context.Background(), id, service.CreateExportJobInput{
		Name:          job.Name,
		Location:      job.Request.Location,
		Layer:         job.Request.Layer,
		OutputDir:     job.Request.OutputDir,
		Format:        string(job.Request.Format),
		FileName:      job.Request.Name,
		TriggerType:   string(job.TriggerType),
		TriggerConfig: job.TriggerConfig,
		Enabled:       enabled,
	})
	if err != nil {
		return err
	}
	if enabled {
		fmt.Printf("Enabled %s\n", job.Name)
	} else {
		fmt.Printf("Disabled %s\n", job.Name)
	}
	return nil
}

func runJobsDelete(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.DeleteJob(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

func runJobsHistory(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := svc.ListRuns(args[0])
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tRECORDS\tOUTPUT\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.Format(time.DateTime), r.Status, r.Records, r.OutputPath, r.Error)
	}
	return w.Flush()
}
