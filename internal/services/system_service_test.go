package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	if s.err != nil {
		return domain.SystemHealthReport{}, s.err
	}
	return s.report, nil
}

func TestSystemServiceHealth(t *testing.T) {
	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	now := started.Add(30 * time.Minute)

	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepository{report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
			},
		}},
		Clock: func() time.Time { return now },
		Build: BuildInfo{Version: "1.4.0", Environment: "prod", StartedAt: started},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("status = %q, want ok", report.Status)
	}
	if report.Version != "1.4.0" || report.Environment != "prod" {
		t.Fatalf("build info = %q/%q", report.Version, report.Environment)
	}
	if report.Uptime != 30*time.Minute {
		t.Fatalf("uptime = %v, want 30m", report.Uptime)
	}
	if report.GeneratedAt != now {
		t.Fatalf("generated at = %v, want %v", report.GeneratedAt, now)
	}
}

func TestSystemServiceHealthDegraded(t *testing.T) {
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepository{report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
				"pubsub":    {Status: domain.HealthStatusDegraded},
			},
		}},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("status = %q, want degraded", report.Status)
	}
}

func TestSystemServiceHealthError(t *testing.T) {
	probeErr := errors.New("collect failed")
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepository{err: probeErr},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	if _, err := svc.Health(context.Background()); !errors.Is(err, probeErr) {
		t.Fatalf("err = %v, want the probe error", err)
	}
}
