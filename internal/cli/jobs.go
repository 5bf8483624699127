package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vidforge/internal/jobs"
)

var jobsAbandonAge time.Duration

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect background render jobs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent render jobs",
		RunE:  runJobsList,
	}

	show := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one render job",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobsShow,
	}

	abandon := &cobra.Command{
		Use:   "abandon",
		Short: "Mark stale pending/running jobs as abandoned",
		RunE:  runJobsAbandon,
	}
	abandon.Flags().DurationVar(&jobsAbandonAge, "age", time.Hour, "Mark jobs untouched for this long")

	cmd.AddCommand(list, show, abandon)
	return cmd
}

func openJobStore() (*jobs.Store, error) {
	pp, err := resolveProject()
	if err != nil {
		return nil, err
	}
	return jobs.Open(pp.JobsFile)
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	store, err := openJobStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(50)
	if err != nil {
		return err
	}
	if outputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(list)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEMPLATE\tSTATUS\tPROGRESS\tSTEP\tUPDATED")
	for _, j := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			j.ID, j.Template, j.Status, j.Progress, j.Step, j.UpdatedAt.Local().Format(time.RFC3339))
	}
	return w.Flush()
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	store, err := openJobStore()
	if err != nil {
		return err
	}
	defer store.Close()

	j, err := store.Get(args[0])
	if err != nil {
		return err
	}
	if outputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(j)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:       %s\n", j.ID)
	fmt.Fprintf(out, "template: %s\n", j.Template)
	fmt.Fprintf(out, "status:   %s (%d%%)\n", j.Status, j.Progress)
	if j.Step != "" {
		fmt.Fprintf(out, "step:     %s\n", j.Step)
	}
	if j.Output != "" {
		fmt.Fprintf(out, "output:   %s\n", j.Output)
	}
	if j.Error != "" {
		fmt.Fprintf(out, "error:    %s\n", j.Error)
	}
	return nil
}

func runJobsAbandon(cmd *cobra.Command, _ []string) error {
	store, err := openJobStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.MarkAbandoned(jobsAbandonAge)
	if err != nil {
		return err
	}
	if outputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"abandoned": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "marked %d job(s) abandoned\n", n)
	return nil
}
