package main

import (
	"context"
	"fmt"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

type dockerAPI interface {
	ContainerList(ctx context.Context, options dockercontainer.ListOptions) ([]dockercontainer.Summary, error)
}

type dockerRuntimeService struct {
	dockerClient dockerAPI
	labelFilter  string
}

func newDockerRuntimeService() (*dockerRuntimeService, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &dockerRuntimeService{dockerClient: cli}, nil
}

// withLabelFilter narrows the daemon-side listing to containers carrying the
// label key. Value checks still happen in discovery.
func (s *dockerRuntimeService) withLabelFilter(key string) *dockerRuntimeService {
	s.labelFilter = key
	return s
}

func (s *dockerRuntimeService) listContainers(ctx context.Context) ([]runtimeContainer, error) {
	options := dockercontainer.ListOptions{All: true}
	if s.labelFilter != "" {
		options.Filters = filters.NewArgs(filters.Arg("label", s.labelFilter))
	}

	summaries, err := s.dockerClient.ContainerList(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	containers := make([]runtimeContainer, 0, len(summaries))
	for _, c := range summaries {
		containers = append(containers, populateDockerContainer(c))
	}
	return containers, nil
}

func populateDockerContainer(c dockercontainer.Summary) runtimeContainer {
	labels := make(map[string]string, len(c.Labels))
	for k, v := range c.Labels {
		labels[k] = v
	}
	return runtimeContainer{
		id:      c.ID,
		names:   c.Names,
		image:   c.Image,
		state:   string(c.State),
		status:  c.Status,
		created: unixTime(c.Created),
		labels:  labels,
	}
}
