// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ledgerdesk/ledgerdesk/app/services"
	businessflow "github.com/ledgerdesk/ledgerdesk/business_flow"
	"github.com/ledgerdesk/ledgerdesk/utils"
)

// ReportScheduler periodically materializes the previous month's login report
// to disk, mails a summary to the configured address and keeps customer
// accounts backfilled.
type ReportScheduler struct {
	reportingFlow    businessflow.ReportingFlow
	provisioningFlow businessflow.ProvisioningFlow
	notificationSvc  services.NotificationService
	logger           *log.Logger
	interval         time.Duration
	outputDir        string
	summaryEmail     string

	logFile *os.File
}

func NewReportScheduler(
	reportingFlow businessflow.ReportingFlow,
	provisioningFlow businessflow.ProvisioningFlow,
	notificationSvc services.NotificationService,
	interval time.Duration,
	outputDir string,
	summaryEmail string,
) *ReportScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if outputDir == "" {
		outputDir = filepath.Join("data", "reports")
	}

	s := &ReportScheduler{
		reportingFlow:    reportingFlow,
		provisioningFlow: provisioningFlow,
		notificationSvc:  notificationSvc,
		interval:         interval,
		outputDir:        outputDir,
		summaryEmail:     summaryEmail,
	}

	// Initialize scheduler-specific logger (to stdout and persistent file)
	if err := s.initSchedulerLogger(); err != nil {
		// Fallback to default stdout logger if file logger init fails
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a persistent file under data/ (or /data)
func (s *ReportScheduler) initSchedulerLogger() error {
	// Prefer relative data/ then fallback to /data for containerized environments
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "scheduler.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		// Success
		s.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create scheduler log file in any candidate directory")
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *ReportScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	// Backfill worker keeps every customer holding an account
	go s.startBackfillWorker(ctx)

	return cancel
}

// runOnce writes the previous month's report if it is not on disk yet. The
// check is idempotent so the loop can run at any frequency.
func (s *ReportScheduler) runOnce(ctx context.Context) {
	month := previousMonth(utils.UTCNow())

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.logger.Printf("scheduler: create report dir failed: %v", err)
		return
	}

	path := filepath.Join(s.outputDir, fmt.Sprintf("monthly_login_report_%s.xlsx", month))
	if _, err := os.Stat(path); err == nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	filename, data, err := s.reportingFlow.ExportMonthlyReportXLSX(runCtx, month)
	if err != nil {
		s.logger.Printf("scheduler: export monthly report for %s failed: %v", month, err)
		return
	}

	target := filepath.Join(s.outputDir, filename)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		s.logger.Printf("scheduler: write monthly report %s failed: %v", target, err)
		return
	}

	s.logger.Printf("scheduler: wrote monthly report %s (%d bytes)", target, len(data))
	s.sendSummary(runCtx, month)
}

// sendSummary mails the headline numbers of a freshly materialized report.
// Delivery problems are logged and never bubble up to the loop.
func (s *ReportScheduler) sendSummary(ctx context.Context, month string) {
	if s.notificationSvc == nil || s.summaryEmail == "" {
		return
	}

	report, err := s.reportingFlow.MonthlyReport(ctx, month)
	if err != nil {
		s.logger.Printf("scheduler: summarize monthly report for %s failed: %v", month, err)
		return
	}

	subject := fmt.Sprintf("Monthly login report %s", month)
	message := fmt.Sprintf(
		"The login report for %s is ready.\n\nUsers covered: %d\nTotal logins: %d\nGenerated at: %s\n\nThe spreadsheet is available on the report share.",
		month, report.TotalUsers, report.TotalLogins, report.GeneratedAt,
	)
	if err := s.notificationSvc.SendEmail(s.summaryEmail, subject, message); err != nil {
		s.logger.Printf("scheduler: send report summary for %s failed: %v", month, err)
	}
}

func (s *ReportScheduler) startBackfillWorker(ctx context.Context) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	// initial run
	s.backfillAccounts(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.backfillAccounts(ctx)
		}
	}
}

func (s *ReportScheduler) backfillAccounts(ctx context.Context) {
	if s.provisioningFlow == nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	created, err := s.provisioningFlow.EnsureCustomerAccounts(runCtx)
	if err != nil {
		s.logger.Printf("scheduler: account backfill failed: %v", err)
		return
	}
	if created > 0 {
		s.logger.Printf("scheduler: backfilled %d customer accounts", created)
	}
}

// previousMonth formats the month before the one containing t.
func previousMonth(t time.Time) string {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 0, -1).Format("2006-01")
}
