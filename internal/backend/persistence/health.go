package persistence

import (
	"context"
	"fmt"
	"log/slog"
)

type CheckStatus string

const (
	StatusPending CheckStatus = "pending"
	StatusSuccess CheckStatus = "success"
	StatusFailed  CheckStatus = "failed"
)

type Check struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Details string      `json:"details,omitempty"`
}

// ConnectionReport lists the backend checks in the order they ran.
// Checks after the first failure stay pending.
type ConnectionReport struct {
	Status CheckStatus `json:"status"`
	Checks []Check     `json:"checks"`
}

func (r *ConnectionReport) OK() bool {
	return r.Status == StatusSuccess
}

// TestConnection checks the record store connection, reads public records
// and checks object store access.
func (c *Client) TestConnection(ctx context.Context) *ConnectionReport {
	steps := []struct {
		name string
		run  func(ctx context.Context) (string, error)
	}{
		{"database connection", func(ctx context.Context) (string, error) {
			if err := c.records.Ping(ctx); err != nil {
				return "", err
			}
			return "database connected successfully", nil
		}},
		{"read data", func(ctx context.Context) (string, error) {
			records, err := c.records.ListPublicRecords(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("found %d records", len(records)), nil
		}},
		{"storage access", func(ctx context.Context) (string, error) {
			if err := c.objects.Ping(ctx); err != nil {
				return "", err
			}
			return "storage accessible", nil
		}},
	}

	report := &ConnectionReport{Status: StatusSuccess, Checks: make([]Check, len(steps))}
	for i, step := range steps {
		report.Checks[i] = Check{Name: step.name, Status: StatusPending}
	}
	for i, step := range steps {
		details, err := step.run(ctx)
		if err != nil {
			slog.Error("persistence: connection test failed", "check", step.name, "error", err)
			report.Checks[i].Status = StatusFailed
			report.Checks[i].Details = err.Error()
			report.Status = StatusFailed
			break
		}
		report.Checks[i].Status = StatusSuccess
		report.Checks[i].Details = details
	}
	return report
}
