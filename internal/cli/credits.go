package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

var (
	creditStatus string
	creditMine   bool
	retireNote   string
	auditLimit   int
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "List carbon credits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if creditStatus != "" {
			q.Set("status", creditStatus)
		}
		if creditMine {
			q.Set("mine", "true")
		}
		path := "/credits"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var res struct {
			Credits []domain.CarbonCredit `json:"credits"`
		}
		if err := newClient().do(http.MethodGet, path, nil, &res); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res.Credits)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tORIGIN\tREGION\tTONS\tOWNER")
		for _, c := range res.Credits {
			owner := c.OwnerName
			if c.Status == domain.CreditRetired {
				owner = "retired by " + c.RetiredByName
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%s\n", c.ID, c.Status, c.Origin, c.Region, c.Tons, owner)
		}
		return w.Flush()
	},
}

var purchaseCmd = &cobra.Command{
	Use:   "purchase <credit-id>",
	Short: "Buy an available credit (corporate buyers)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r service.Receipt
		if err := newClient().do(http.MethodPost, "/credits/"+url.PathEscape(args[0])+"/purchase", nil, &r); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), r)
		}
		warn(r.Warning)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Purchased %s: %.0f t for $%.2f\n", r.Credit.ID, r.Credit.Tons, r.PriceUSD)
		return nil
	},
}

var retireCmd = &cobra.Command{
	Use:   "retire <credit-id>",
	Short: "Retire an owned credit against your emissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body interface{}
		if retireNote != "" {
			body = map[string]string{"note": retireNote}
		}
		var r service.Receipt
		if err := newClient().do(http.MethodPost, "/credits/"+url.PathEscape(args[0])+"/retire", body, &r); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), r)
		}
		warn(r.Warning)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Retired %s (%.0f t)\n", r.Credit.ID, r.Credit.Tons)
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log, newest first (NGO and administrators)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/audit-logs"
		if auditLimit > 0 {
			path += "?limit=" + strconv.Itoa(auditLimit)
		}
		var res struct {
			AuditLogs []domain.AuditLog `json:"auditLogs"`
		}
		if err := newClient().do(http.MethodGet, path, nil, &res); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res.AuditLogs)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tTARGET\tBY\tDETAILS")
		for _, l := range res.AuditLogs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s (%s)\t%s\n",
				l.Timestamp.Format("2006-01-02 15:04:05"), l.Action, l.TargetID, l.UserName, l.Role, l.Details)
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Registry totals (administrators)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var st service.RegistryStats
		if err := newClient().do(http.MethodGet, "/stats", nil, &st); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	},
}

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Owned and retired credits (corporate buyers)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var p service.Portfolio
		if err := newClient().do(http.MethodGet, "/portfolio", nil, &p); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Held: %d credits, %.0f t\nRetired: %d credits, %.0f t\nValue: $%.2f\n",
			len(p.Owned), p.TotalOffsetTons, len(p.Retired), p.RetiredTons, p.ValueUSD)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Your submissions and estimated earnings (field workers)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var fs service.FieldSummary
		if err := newClient().do(http.MethodGet, "/field-summary", nil, &fs); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), fs)
	},
}

func init() {
	creditsCmd.Flags().StringVar(&creditStatus, "status", "", "AVAILABLE, SOLD or RETIRED")
	creditsCmd.Flags().BoolVar(&creditMine, "mine", false, "only credits I hold or retired")
	retireCmd.Flags().StringVar(&retireNote, "note", "", "retirement note, e.g. the reporting period")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum entries (0 for all)")
}
