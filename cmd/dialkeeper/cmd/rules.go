package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/dialkeeper/internal/core/db"
	"github.com/solatis/dialkeeper/internal/rules"
	"github.com/solatis/dialkeeper/internal/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage stored rule sets",
}

var rulesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Validate a rule document and store it as a new revision",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesImport,
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the active rule document",
	RunE:  runRulesExport,
}

var rulesHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored revisions, newest first",
	RunE:  runRulesHistory,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesImportCmd, rulesExportCmd, rulesHistoryCmd)

	for _, c := range []*cobra.Command{rulesImportCmd, rulesExportCmd, rulesHistoryCmd} {
		c.Flags().String("account", "", "account ID (empty for the global rule set)")
		c.Flags().String("direction", "outgoing", "call direction (outgoing, incoming)")
	}
	rulesExportCmd.Flags().String("out", "", "write to file instead of stdout")
	rulesHistoryCmd.Flags().Int("limit", 20, "maximum revisions to list")
}

func ruleSetFlags(cmd *cobra.Command) (string, types.Direction, error) {
	account, _ := cmd.Flags().GetString("account")
	name, _ := cmd.Flags().GetString("direction")
	dir, err := types.ParseDirection(name)
	return account, dir, err
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	account, dir, err := ruleSetFlags(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := rules.DecodeDocument(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	rw := rules.NewRewriter(dir, account != rules.GlobalAccount)
	if err := rw.LoadStrict(doc); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	canonical, err := rw.Save().EncodeToString()
	if err != nil {
		return err
	}

	_, database, queries, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	rs, err := db.NewRuleStore(queries).SaveRuleSet(cmd.Context(), account, dir, canonical, rw.Len())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored revision %s (%d rules)\n", rs.RevisionID, rs.RuleCount)
	return nil
}

func runRulesExport(cmd *cobra.Command, args []string) error {
	account, dir, err := ruleSetFlags(cmd)
	if err != nil {
		return err
	}

	_, database, queries, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	rs, err := db.NewRuleStore(queries).LatestRuleSet(cmd.Context(), account, dir)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return os.WriteFile(out, []byte(rs.Document), 0o644)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rs.Document)
	return err
}

func runRulesHistory(cmd *cobra.Command, args []string) error {
	account, dir, err := ruleSetFlags(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	_, database, queries, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	revs, err := db.NewRuleStore(queries).ListRevisions(cmd.Context(), account, dir, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tRULES\tCREATED AT")
	for _, rs := range revs {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", rs.RevisionID, rs.RuleCount, rs.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
