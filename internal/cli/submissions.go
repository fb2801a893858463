package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

var (
	submitImage     string
	submitLat       float64
	submitLng       float64
	submitRegion    string
	submitEcosystem string
	submitArea      float64

	listStatus string
	listQueue  string
	listMine   bool

	decisionComments string
)

var submitCmd = &cobra.Command{
	Use:     "submit",
	Short:   "Submit a restoration site photo (field workers)",
	Example: `  bluecarbon submit --image https://img.example/site.jpg --lat 21.9 --lng 89.1 --region Sundarbans --ecosystem MANGROVE`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"imageUrl":      submitImage,
			"location":      domain.Location{Lat: submitLat, Lng: submitLng, Region: submitRegion},
			"ecosystemType": submitEcosystem,
		}
		if submitArea > 0 {
			body["estimatedArea"] = submitArea
		}
		var r service.Receipt
		if err := newClient().do(http.MethodPost, "/submissions", body, &r); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), r)
		}
		warn(r.Warning)
		s := r.Submission
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Submission %s: %s, %.0f tCO2e estimated (AI score %.2f)\n",
			s.ID, s.Status, s.EstimatedCarbon, s.AIScore)
		return nil
	},
}

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "List submissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if listStatus != "" {
			q.Set("status", listStatus)
		}
		if listQueue != "" {
			q.Set("queue", listQueue)
		}
		if listMine {
			q.Set("mine", "true")
		}
		path := "/submissions"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var res struct {
			Submissions []domain.Submission `json:"submissions"`
		}
		if err := newClient().do(http.MethodGet, path, nil, &res); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res.Submissions)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tECOSYSTEM\tREGION\tTCO2E\tAI\tBY")
		for _, s := range res.Submissions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%.2f\t%s\n",
				s.ID, s.Status, s.EcosystemType, s.Location.Region, s.EstimatedCarbon, s.AIScore, s.UserName)
		}
		return w.Flush()
	},
}

var showSubmissionCmd = &cobra.Command{
	Use:   "show <submission-id>",
	Short: "Show one submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var s domain.Submission
		if err := newClient().do(http.MethodGet, "/submissions/"+url.PathEscape(args[0]), nil, &s); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	},
}

var reviewCmd = &cobra.Command{
	Use:       "review <submission-id> <approve|reject|flag>",
	Short:     "Record an NGO review decision",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{service.ReviewApprove, service.ReviewReject, service.ReviewFlag},
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendDecision(cmd, args[0], "review", args[1])
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide <submission-id> <issue|reject>",
	Short: "Issue a credit for, or reject, an NGO-approved submission (administrators)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendDecision(cmd, args[0], "decision", args[1])
	},
}

func sendDecision(cmd *cobra.Command, id, endpoint, decision string) error {
	var r service.Receipt
	err := newClient().do(http.MethodPost, "/submissions/"+url.PathEscape(id)+"/"+endpoint, map[string]string{
		"decision": decision,
		"comments": decisionComments,
	}, &r)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), r)
	}
	warn(r.Warning)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Submission %s is now %s\n", r.Submission.ID, r.Submission.Status)
	if r.Credit != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Credit %s minted: %.0f t, tx %s\n", r.Credit.ID, r.Credit.Tons, r.Credit.TransactionHash)
	}
	return nil
}

func init() {
	submitCmd.Flags().StringVar(&submitImage, "image", "", "photo URL or reference")
	submitCmd.Flags().Float64Var(&submitLat, "lat", 0, "latitude")
	submitCmd.Flags().Float64Var(&submitLng, "lng", 0, "longitude")
	submitCmd.Flags().StringVar(&submitRegion, "region", "", "region name")
	submitCmd.Flags().StringVar(&submitEcosystem, "ecosystem", "", "MANGROVE or SEAGRASS")
	submitCmd.Flags().Float64Var(&submitArea, "area", 0, "site area in hectares (server default if omitted)")
	_ = submitCmd.MarkFlagRequired("image")
	_ = submitCmd.MarkFlagRequired("ecosystem")

	submissionsCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	submissionsCmd.Flags().StringVar(&listQueue, "queue", "", "review or issuance")
	submissionsCmd.Flags().BoolVar(&listMine, "mine", false, "only my submissions")
	submissionsCmd.AddCommand(showSubmissionCmd)

	for _, c := range []*cobra.Command{reviewCmd, decideCmd} {
		c.Flags().StringVar(&decisionComments, "comments", "", "comments recorded with the decision")
	}
}
