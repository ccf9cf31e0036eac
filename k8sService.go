package main

import (
	"context"
	"fmt"
	"strings"

	core "k8s.io/api/core/v1"
	v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

const terminatingState = "terminating"

type k8sRuntimeService struct {
	k8sClient kubernetes.Interface
	namespace string
}

func newK8sRuntimeService(namespace string) (*k8sRuntimeService, error) {
	// creates the in-cluster config
	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load in-cluster config: %w", err)
	}
	k8sClient, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create k8s client: %w", err)
	}
	return &k8sRuntimeService{k8sClient: k8sClient, namespace: namespace}, nil
}

func (s *k8sRuntimeService) listContainers(ctx context.Context) ([]runtimeContainer, error) {
	k8sPods, err := s.k8sClient.CoreV1().Pods(s.namespace).List(ctx, v1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get the list of pods from k8s cluster: %w", err)
	}

	containers := make([]runtimeContainer, 0, len(k8sPods.Items))
	for _, k8sPod := range k8sPods.Items {
		containers = append(containers, populatePod(k8sPod))
	}
	return containers, nil
}

// populatePod maps a pod onto the runtime listing. Annotations override
// labels of the same key, since routing rules usually live in annotations.
func populatePod(k8sPod core.Pod) runtimeContainer {
	labels := make(map[string]string, len(k8sPod.Labels)+len(k8sPod.Annotations))
	for k, v := range k8sPod.Labels {
		labels[k] = v
	}
	for k, v := range k8sPod.Annotations {
		labels[k] = v
	}

	image := ""
	if len(k8sPod.Spec.Containers) > 0 {
		image = k8sPod.Spec.Containers[0].Image
	}

	state := strings.ToLower(string(k8sPod.Status.Phase))
	if k8sPod.DeletionTimestamp != nil {
		state = terminatingState
	}

	ready := 0
	for _, cs := range k8sPod.Status.ContainerStatuses {
		if cs.Ready {
			ready++
		}
	}

	return runtimeContainer{
		id:      string(k8sPod.UID),
		names:   []string{k8sPod.Name},
		image:   image,
		state:   state,
		status:  fmt.Sprintf("%d/%d ready", ready, len(k8sPod.Spec.Containers)),
		created: k8sPod.CreationTimestamp.Time,
		labels:  labels,
	}
}
