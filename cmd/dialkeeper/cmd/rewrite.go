package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solatis/dialkeeper/internal/core/db"
	"github.com/solatis/dialkeeper/internal/rules"
	"github.com/solatis/dialkeeper/internal/types"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite ADDRESS",
	Short: "Rewrite an address locally and print the result",
	Long: `Rewrite evaluates ADDRESS against a rule file (--rules) or, without one,
against the rule sets stored in the database for --account.`,
	Args: cobra.ExactArgs(1),
	RunE: runRewrite,
}

func init() {
	rootCmd.AddCommand(rewriteCmd)
	f := rewriteCmd.Flags()
	f.String("rules", "", "rule file to evaluate instead of the stored rule sets")
	f.String("account", "", "account whose stored rule set applies (empty for global)")
	f.String("direction", "outgoing", "call direction (outgoing, incoming)")
	f.String("ssid", "", "Wi-Fi SSID the device is connected to")
	f.String("country-code", "", "default country code")
	f.Bool("recording", false, "call recording preference is enabled")
	f.String("network", "none", "network type (none, wifi, cellular, ethernet)")
	f.Bool("progressive", false, "print the address after each matching rule")
	f.String("extra", "", "print only the extras value at this dotted path")
	f.StringP("output", "o", "yaml", "output format (yaml, json)")
}

// resultView is the printable form of a rewrite result.
type resultView struct {
	Number             string            `json:"number" yaml:"number"`
	ForceDialOut       bool              `json:"force_dial_out" yaml:"force_dial_out"`
	ShowDialOutAlert   bool              `json:"show_dial_out_alert" yaml:"show_dial_out_alert"`
	RecordCall         bool              `json:"record_call" yaml:"record_call"`
	ShouldAutoRecord   bool              `json:"should_auto_record" yaml:"should_auto_record"`
	DialAction         string            `json:"dial_action,omitempty" yaml:"dial_action,omitempty"`
	Headers            map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Extras             any               `json:"extras,omitempty" yaml:"extras,omitempty"`
	LocationPolicy     string            `json:"location_policy,omitempty" yaml:"location_policy,omitempty"`
	Alert              string            `json:"alert,omitempty" yaml:"alert,omitempty"`
	IncomingCallAction string            `json:"incoming_call_action" yaml:"incoming_call_action"`
	IncomingCallParam  string            `json:"incoming_call_param,omitempty" yaml:"incoming_call_param,omitempty"`
	DefaultCountryCode string            `json:"default_country_code,omitempty" yaml:"default_country_code,omitempty"`
	MatchedRules       []int             `json:"matched_rules" yaml:"matched_rules"`
}

func newResultView(r types.Result) resultView {
	v := resultView{
		Number:             r.Number,
		ForceDialOut:       r.ForceDialOut,
		ShowDialOutAlert:   r.ShowDialOutAlert,
		RecordCall:         r.RecordCall,
		ShouldAutoRecord:   r.ShouldAutoRecord,
		DialAction:         string(r.DialAction),
		LocationPolicy:     r.LocationPolicy,
		Alert:              r.Alert,
		IncomingCallAction: r.IncomingCallAction.Disposition.String(),
		IncomingCallParam:  r.IncomingCallAction.Param,
		DefaultCountryCode: r.DefaultCountryCode,
		MatchedRules:       r.MatchedRules,
	}
	if v.MatchedRules == nil {
		v.MatchedRules = []int{}
	}
	if len(r.Headers) > 0 {
		v.Headers = make(map[string]string, len(r.Headers))
		for _, h := range r.Headers {
			v.Headers[h.Name] = h.Value
		}
	}
	if r.Extras != nil && !r.Extras.IsLeaf() {
		v.Extras = treeView(r.Extras)
	}
	return v
}

func treeView(n *types.Node) any {
	if n.IsLeaf() {
		return n.Value
	}
	out := make(map[string]any, len(n.Children))
	for _, c := range n.Children {
		out[c.Name] = treeView(c)
	}
	return out
}

// rewriteContextFromFlags builds the evaluation context from flags.
func rewriteContextFromFlags(cmd *cobra.Command) (types.Context, error) {
	f := cmd.Flags()
	ssid, _ := f.GetString("ssid")
	cc, _ := f.GetString("country-code")
	recording, _ := f.GetBool("recording")
	network, _ := f.GetString("network")

	nt, ok := types.ParseNetworkType(network)
	if !ok {
		return types.Context{}, fmt.Errorf("unknown network type %q", network)
	}
	return types.Context{
		WifiSSID:           ssid,
		DefaultCountryCode: cc,
		RecordingEnabled:   recording,
		NetworkType:        nt,
	}, nil
}

// loadRewriteEngine builds an engine from --rules or the stored rule sets.
func loadRewriteEngine(cmd *cobra.Command) (*rules.Engine, error) {
	engine := rules.NewEngine()

	if path, _ := cmd.Flags().GetString("rules"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		doc, err := rules.DecodeDocument(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, err := engine.InstallDocument(rules.GlobalAccount, doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return engine, nil
	}

	_, database, queries, err := openStore()
	if err != nil {
		return nil, err
	}
	defer database.Close()
	if _, err := installStoredRuleSets(cmd.Context(), db.NewRuleStore(queries), engine, nil, slog.Default()); err != nil {
		return nil, err
	}
	return engine, nil
}

func runRewrite(cmd *cobra.Command, args []string) error {
	dirName, _ := cmd.Flags().GetString("direction")
	dir, err := types.ParseDirection(dirName)
	if err != nil {
		return err
	}
	ctx, err := rewriteContextFromFlags(cmd)
	if err != nil {
		return err
	}
	engine, err := loadRewriteEngine(cmd)
	if err != nil {
		return err
	}

	account, _ := cmd.Flags().GetString("account")
	output, _ := cmd.Flags().GetString("output")
	progressive, _ := cmd.Flags().GetBool("progressive")
	extra, _ := cmd.Flags().GetString("extra")

	var view any
	switch {
	case extra != "":
		res := engine.Rewrite(account, dir, args[0], ctx)
		v, err := rules.ResolveValue(res.Extras, extra)
		if err != nil {
			return fmt.Errorf("%s: %w", extra, err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
		return err
	case progressive:
		steps := engine.RewriteProgressively(account, dir, args[0], ctx)
		if steps == nil {
			steps = []string{}
		}
		view = map[string][]string{"steps": steps}
	default:
		view = newResultView(engine.Rewrite(account, dir, args[0], ctx))
	}
	return writeOutput(cmd.OutOrStdout(), output, view)
}

// writeOutput encodes v as yaml or json.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
