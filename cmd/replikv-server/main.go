package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/replikv/replikv/internal/server"
	"github.com/replikv/replikv/pkg/cluster"
	"github.com/replikv/replikv/pkg/config"
	"github.com/replikv/replikv/pkg/transport"
)

const shutdownGrace = 10 * time.Second

func main() {
	srvCfg := config.LoadServerConfig()
	if err := srvCfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid server configuration")
	}

	level, err := logrus.ParseLevel(srvCfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid log level")
	}
	logrus.SetLevel(level)

	cacheCfg := config.LoadCacheConfig()
	if err := cacheCfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid cluster configuration")
	}

	coord, err := cluster.NewWithTransport(cacheCfg, transport.NewHTTP(nil))
	if err != nil {
		logrus.WithError(err).Fatal("failed to create coordinator")
	}
	defer coord.Close()

	nodeID, err := coord.AddNode(srvCfg.Host, srvCfg.Port, os.Getenv("REPLIKV_NODE_ID"))
	if err != nil {
		logrus.WithError(err).Fatal("failed to create local node")
	}

	// REPLIKV_PEERS lists the other members as id=host:port pairs,
	// comma-separated. Peers learned here are reached over HTTP.
	if peers := os.Getenv("REPLIKV_PEERS"); peers != "" {
		for _, peer := range strings.Split(peers, ",") {
			id, addr, ok := strings.Cut(strings.TrimSpace(peer), "=")
			if !ok {
				logrus.WithField("peer", peer).Fatal("malformed peer, want id=host:port")
			}
			if err := coord.JoinRemote(id, addr); err != nil {
				logrus.WithError(err).WithField("peer", id).Fatal("failed to join peer")
			}
		}
	}

	srv := server.New(coord, nodeID, srvCfg.Address())

	go func() {
		if err := srv.Start(); err != nil {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logrus.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logrus.WithError(err).Warn("shutdown did not finish cleanly")
	}

	logrus.Info("server stopped")
}
