package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type runtimeService interface {
	listContainers(ctx context.Context) ([]runtimeContainer, error)
}

const (
	runtimeDocker     = "docker"
	runtimeKubernetes = "kubernetes"

	nameLabel        = "catalog.name"
	groupLabel       = "catalog.group"
	descriptionLabel = "catalog.description"
	severityLabel    = "catalog.severity"

	composeProjectLabel = "com.docker.compose.project"
	composeServiceLabel = "com.docker.compose.service"

	shortIDLength = 12
)

type discoveryConfig struct {
	enableLabel string
	baseAddress string
}

func initializeRuntimeService(runtime string, namespace string, enableLabel string) (runtimeService, error) {
	switch runtime {
	case runtimeDocker:
		dockerService, err := newDockerRuntimeService()
		if err != nil {
			return nil, err
		}
		return dockerService.withLabelFilter(enableLabel), nil
	case runtimeKubernetes:
		k8sService, err := newK8sRuntimeService(namespace)
		if err != nil {
			return nil, err
		}
		return k8sService, nil
	default:
		return nil, fmt.Errorf("unsupported container runtime %q", runtime)
	}
}

// discoverWorkloads turns a runtime listing into unprobed workload records.
// Containers without the enable label are dropped.
func discoverWorkloads(containers []runtimeContainer, cfg discoveryConfig) []workload {
	workloads := make([]workload, 0, len(containers))
	for _, c := range containers {
		if !isCatalogEnabled(c.labels, cfg.enableLabel) {
			continue
		}
		workloads = append(workloads, populateWorkload(c, cfg))
	}
	return workloads
}

func isCatalogEnabled(labels map[string]string, enableLabel string) bool {
	value, ok := labels[enableLabel]
	return ok && (value == "true" || value == "1")
}

func populateWorkload(c runtimeContainer, cfg discoveryConfig) workload {
	routingURLs, pathPrefixes := parseRoutingRules(c.labels)
	lanURLs := buildLanURLs(cfg.baseAddress, pathPrefixes)

	health := statusDown
	if c.state == stateRunning {
		health = statusUp
	}

	return workload{
		ID:          c.id,
		Name:        workloadName(c),
		Visibility:  visibilityFor(c.labels[groupLabel]),
		Description: c.labels[descriptionLabel],
		Image:       c.image,
		Labels:      selectLabels(c.labels, cfg.enableLabel),
		State:       c.state,
		Status:      c.status,
		Created:     c.created,
		RoutingURLs: routingURLs,
		LanURLs:     lanURLs,
		Candidates:  buildCandidates(routingURLs, lanURLs),
		Health:      health,
	}
}

func workloadName(c runtimeContainer) string {
	if name := strings.TrimSpace(c.labels[nameLabel]); name != "" {
		return name
	}
	for _, n := range c.names {
		if name := strings.TrimLeft(strings.TrimSpace(n), "/"); name != "" {
			return name
		}
	}
	if len(c.id) > shortIDLength {
		return c.id[:shortIDLength]
	}
	return c.id
}

func visibilityFor(group string) visibility {
	switch group {
	case "public":
		return visibilityPublic
	case "admin":
		return visibilityPrivate
	default:
		return visibilityUnknown
	}
}

// selectLabels keeps the labels under the catalog namespace, which is the
// enable label up to and including its last dot, plus the compose labels.
func selectLabels(labels map[string]string, enableLabel string) map[string]string {
	namespace := ""
	if i := strings.LastIndex(enableLabel, "."); i >= 0 {
		namespace = enableLabel[:i+1]
	}
	selected := make(map[string]string)
	for key, value := range labels {
		switch {
		case key == composeProjectLabel, key == composeServiceLabel:
			selected[key] = value
		case namespace != "" && strings.HasPrefix(key, namespace):
			selected[key] = value
		case key == enableLabel:
			selected[key] = value
		}
	}
	return selected
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unixTime(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}
