package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage stored processing jobs",
	Long: `Inspect and manage jobs recorded in the job store.

The job store is a single-file database, configured with --store or the
INVOICE_EXTRACTOR_STORE environment variable. Jobs are created by the
serve endpoints and by "process --save".

Examples:
  invoice-extractor jobs list --store jobs.db
  invoice-extractor jobs show <id>
  invoice-extractor jobs delete <id>`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored jobs",
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one job with its parsed result",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a job and its result",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsDelete,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
}

func openJobStore() (*store.Store, error) {
	if storePath == "" {
		return nil, fmt.Errorf("no job store configured (set --store or INVOICE_EXTRACTOR_STORE)")
	}
	return store.Open(storePath, nil)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	jobs, err := openJobStore()
	if err != nil {
		return err
	}
	defer jobs.Close()

	list, err := jobs.ListJobs()
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(list)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSOURCE\tMETHOD\tITEMS\tCREATED")
	fmt.Fprintln(tw, "--\t------\t------\t------\t-----\t-------")

	for _, j := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			j.ID,
			j.Status,
			j.SourceFile,
			j.Method,
			j.ItemCount,
			j.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return tw.Flush()
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	jobs, err := openJobStore()
	if err != nil {
		return err
	}
	defer jobs.Close()

	job, err := jobs.GetJob(args[0])
	if err != nil {
		return err
	}

	out := struct {
		Job    *store.Job           `json:"job"`
		Result *model.ParsedInvoice `json:"result,omitempty"`
	}{Job: job}

	if job.Status == store.StatusCompleted {
		if inv, err := jobs.GetResult(job.ID); err == nil {
			out.Result = inv
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func runJobsDelete(cmd *cobra.Command, args []string) error {
	jobs, err := openJobStore()
	if err != nil {
		return err
	}
	defer jobs.Close()

	if err := jobs.DeleteJob(args[0]); err != nil {
		return err
	}

	fmt.Printf("Deleted job %s\n", args[0])
	return nil
}
