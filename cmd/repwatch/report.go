package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/reports"
)

var (
	reportText       string
	reportURL        string
	reportReportedBy string
	reportNotes      string
	listStatus       string
	listPlatform     string
)

var reportCmd = &cobra.Command{
	Use:   "report [platform] [post-id] [reason]",
	Short: "File a moderation report against a post",
	Long: `Files a report against a post. Reasons: spam, harassment,
hate_speech, misinformation, other.

Repeating the same submission shortly after returns the existing
report instead of opening a duplicate.`,
	Args: cobra.ExactArgs(3),
	RunE: submitReport,
}

var reportStatusCmd = &cobra.Command{
	Use:   "report-status [report-id] [status]",
	Short: "Move a report to a new lifecycle status",
	Long: `Transitions a report. Allowed moves: pending to reviewed or
dismissed, reviewed to resolved or dismissed. Resolved and dismissed
are final.`,
	Args: cobra.ExactArgs(2),
	RunE: updateReportStatus,
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List moderation reports",
	RunE:  listReports,
}

func init() {
	reportCmd.Flags().StringVar(&reportText, "text", "", "content snapshot of the reported post")
	reportCmd.Flags().StringVar(&reportURL, "url", "", "URL of the reported post")
	reportCmd.Flags().StringVar(&reportReportedBy, "by", "", "reporter identity (defaults to anonymous)")

	reportStatusCmd.Flags().StringVar(&reportNotes, "notes", "", "moderator note to append")

	reportsCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	reportsCmd.Flags().StringVar(&listPlatform, "platform", "", "filter by platform")
}

func openReportManager() (*reports.Manager, error) {
	backend, err := buildStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return buildReportManager(cfg, backend)
}

func submitReport(cmd *cobra.Command, args []string) error {
	manager, err := openReportManager()
	if err != nil {
		return err
	}

	post := models.PostData{
		ID:       args[1],
		Platform: models.Platform(args[0]),
		Text:     reportText,
		URL:      reportURL,
	}
	report, err := manager.Submit(post, models.ReportReason(args[2]), reportReportedBy)
	if err != nil {
		return err
	}

	return printJSON(report)
}

func updateReportStatus(cmd *cobra.Command, args []string) error {
	manager, err := openReportManager()
	if err != nil {
		return err
	}

	report, err := manager.UpdateStatus(args[0], models.ReportStatus(args[1]), reportNotes)
	if err != nil {
		return err
	}

	return printJSON(report)
}

func listReports(cmd *cobra.Command, args []string) error {
	manager, err := openReportManager()
	if err != nil {
		return err
	}

	list, err := manager.List(reports.Filter{
		Status:   models.ReportStatus(listStatus),
		Platform: models.Platform(listPlatform),
	})
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No reports found")
		return nil
	}

	for _, r := range list {
		fmt.Printf("%s  %-9s  %-8s  %-14s  %s/%s\n",
			r.Timestamp.Format("2006-01-02 15:04"), r.Status, r.Platform, r.Reason, r.Platform, r.PostID)
		fmt.Printf("    id: %s  by: %s\n", r.ReportID, r.ReportedBy)
		for _, note := range r.AdditionalInfo.Notes {
			fmt.Printf("    note (%s): %s\n", note.Timestamp.Format("Jan 2 15:04"), note.Note)
		}
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
