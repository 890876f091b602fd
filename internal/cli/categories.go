package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/trivia"
)

// NewCategoriesCmd prints the category catalog with the question counts the trivia API reports.
func NewCategoriesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List quiz categories and their available questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return printCategories(cmd, newTriviaClient(cfg), cmd.OutOrStdout())
		},
	}
}

func printCategories(cmd *cobra.Command, client *trivia.Client, out io.Writer) error {
	remote, err := client.Categories(cmd.Context())
	if err != nil {
		return fmt.Errorf("list trivia categories: %w", err)
	}
	remoteNames := make(map[int]string, len(remote))
	for _, rc := range remote {
		remoteNames[rc.ID] = rc.Name
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tEASY\tMEDIUM\tHARD\tAPI NAME")
	for _, c := range domain.Categories {
		if c.ID == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t(all)\n", c.Name)
			continue
		}
		apiName, ok := remoteNames[*c.ID]
		if !ok {
			apiName = "(missing)"
		}
		count, err := client.CategoryQuestionCount(cmd.Context(), *c.ID)
		if err != nil {
			return fmt.Errorf("count questions for %s: %w", c.Name, err)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", c.Name, *c.ID, count.Easy, count.Medium, count.Hard, apiName)
	}
	return w.Flush()
}
