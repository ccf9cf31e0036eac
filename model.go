package main

import "time"

type healthStatus string

const (
	statusUp       healthStatus = "up"
	statusDegraded healthStatus = "degraded"
	statusDown     healthStatus = "down"
)

type visibility string

const (
	visibilityPublic  visibility = "public"
	visibilityPrivate visibility = "private"
	visibilityUnknown visibility = "unknown"
)

const stateRunning = "running"

// runtimeContainer is one entry of the runtime listing, independent of the backend.
type runtimeContainer struct {
	id      string
	names   []string
	image   string
	state   string
	status  string
	created time.Time
	labels  map[string]string
}

type workload struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Visibility  visibility        `json:"visibility"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Labels      map[string]string `json:"labels"`
	State       string            `json:"state"`
	Status      string            `json:"status"`
	Created     time.Time         `json:"created"`
	RoutingURLs []string          `json:"routingUrls"`
	LanURLs     []string          `json:"lanUrls"`
	Candidates  []string          `json:"candidates"`

	Health         healthStatus `json:"health"`
	ResponseTimeMs *int64       `json:"responseTimeMs"`
	Attempts       int          `json:"attempts"`
	LastError      *string      `json:"lastError"`
	CheckedURL     *string      `json:"checkedUrl"`
}

type catalogSnapshot struct {
	GeneratedAt time.Time  `json:"generatedAt"`
	Count       int        `json:"count"`
	Workloads   []workload `json:"workloads"`
}

type refreshRecord struct {
	StartedAt  *time.Time `json:"lastStartedAt"`
	FinishedAt *time.Time `json:"lastFinishedAt"`
	DurationMs *int64     `json:"lastDurationMs"`
	Error      *string    `json:"lastError"`
}

// byName sorts workloads for publication.
type byName []workload

func (s byName) Less(i, j int) bool {
	return s[i].Name < s[j].Name
}

func (s byName) Len() int {
	return len(s)
}

func (s byName) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}
