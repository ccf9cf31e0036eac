package main

import (
	"errors"
	"fmt"

	fthealth "github.com/Financial-Times/go-fthealth/v1_1"
)

const (
	systemCode = "workload-catalog"
	panicGuide = "Check the workload logs and its routing labels, then GET /catalog/{name}?cache=false to re-probe it."
)

func newWorkloadHealthCheck(w workload) fthealth.Check {
	return fthealth.Check{
		ID:               w.ID,
		BusinessImpact:   "On its own this failure does not have a business impact but the workload is unreachable through its routes.",
		Name:             w.Name,
		PanicGuide:       panicGuide,
		Severity:         getSeverityForWorkload(w),
		TechnicalSummary: "The workload did not answer its health check candidates. Please check the panic guide.",
		Checker: func() (string, error) {
			return workloadCheckOutput(w)
		},
	}
}

func workloadCheckOutput(w workload) (string, error) {
	output := string(w.Health)
	if w.CheckedURL != nil {
		output = fmt.Sprintf("%s via %s", output, *w.CheckedURL)
	}
	if w.ResponseTimeMs != nil {
		output = fmt.Sprintf("%s in %dms", output, *w.ResponseTimeMs)
	}

	if w.Health != statusDown {
		return output, nil
	}
	if w.LastError != nil {
		return output, fmt.Errorf("%s: %s", output, *w.LastError)
	}
	return output, fmt.Errorf("%s: workload state is %s", output, w.State)
}

func newRefreshHealthCheck(record refreshRecord) fthealth.Check {
	return fthealth.Check{
		ID:               "catalog-refresh",
		BusinessImpact:   "The catalog is served from the last successful refresh and may be stale.",
		Name:             "Catalog refresh",
		PanicGuide:       panicGuide,
		Severity:         defaultSeverity,
		TechnicalSummary: "The last refresh cycle could not list workloads from the container runtime.",
		Checker: func() (string, error) {
			if record.Error != nil {
				return "", errors.New(*record.Error)
			}
			return "last refresh succeeded", nil
		},
	}
}

func buildCatalogHealthCheck(environment string, snapshot *catalogSnapshot, record refreshRecord) fthealth.HealthCheck {
	checks := make([]fthealth.Check, 0, len(snapshot.Workloads)+1)
	checks = append(checks, newRefreshHealthCheck(record))
	for _, w := range snapshot.Workloads {
		checks = append(checks, newWorkloadHealthCheck(w))
	}

	return fthealth.HealthCheck{
		SystemCode:  systemCode,
		Name:        environment + " workload catalog",
		Description: "Health of every cataloged workload, served from the latest snapshot.",
		Checks:      checks,
	}
}
