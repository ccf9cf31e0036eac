package main

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	log "github.com/Financial-Times/go-logger"
)

const (
	pilotLightFormat = "catalog.health.%s.pilot-light 1 %d\n"
	metricFormat     = "catalog.health.%s.workloads.%s %d %d\n"
)

type graphiteFeeder struct {
	url         string
	environment string
	connection  net.Conn
	ticker      *time.Ticker
	controller  controller
}

func newGraphiteFeeder(url string, environment string, controller controller) *graphiteFeeder {
	connection := tcpConnect(url)
	ticker := time.NewTicker(60 * time.Second)
	return &graphiteFeeder{
		url:         url,
		environment: environment,
		connection:  connection,
		ticker:      ticker,
		controller:  controller,
	}
}

func (g *graphiteFeeder) feed() {
	for range g.ticker.C {
		errPilot := g.sendPilotLight()
		if errPilot != nil {
			log.WithError(errPilot).Warn("Problem encountered while sending pilot light to Graphite.")
			g.reconnect()
			continue
		}

		errWorkloads := g.sendWorkloads()
		if errWorkloads != nil {
			log.WithError(errWorkloads).Warn("Problem encountered while sending workload health to Graphite.")
			g.reconnect()
		}
	}
}

func (g *graphiteFeeder) sendPilotLight() error {
	if g.connection == nil {
		return errors.New("can't send pilot light, no Graphite connection is set")
	}

	_, err := fmt.Fprintf(g.connection, pilotLightFormat, g.environment, time.Now().Unix())
	return err
}

// sendWorkloads writes one line per workload of the current snapshot, stamped
// with the snapshot generation time.
func (g *graphiteFeeder) sendWorkloads() error {
	snapshot := g.controller.currentSnapshot()
	if len(snapshot.Workloads) == 0 {
		return nil
	}
	if g.connection == nil {
		return errors.New("can't send results, no Graphite connection")
	}

	for _, w := range snapshot.Workloads {
		name := strings.Replace(w.Name, ".", "-", -1)
		_, err := fmt.Fprintf(g.connection, metricFormat, g.environment, name, int(statusToFloat64(w.Health)), snapshot.GeneratedAt.Unix())
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *graphiteFeeder) reconnect() {
	log.Infof("Reconnecting to Graphite host.")
	if g.connection != nil {
		_ = g.connection.Close()
	}
	g.connection = tcpConnect(g.url)
}

func tcpConnect(url string) net.Conn {
	conn, err := net.Dial("tcp", url)
	if err != nil {
		log.WithError(err).Warn("Error while creating TCP connection")
		return nil
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(30 * time.Minute)
	}
	return conn
}
