// Package redis implements the MultiStore: the set of keyed stores that
// together encode the clique graph. Each logical store is its own connection,
// standalone or clustered, built from the store-topology file.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/pkg/errors"
)

var (
	ErrStoreClosed = errors.New(errors.ErrCodeStoreClosed, "store client is closed")
)

// storeClient wraps one logical store's connection.
type storeClient struct {
	name    string
	rdb     redis.UniversalClient
	cluster bool
}

func newStoreClient(name string, desc config.StoreDescriptor) (*storeClient, error) {
	var tlsConfig *tls.Config
	if desc.SSLEnabled {
		tlsConfig = &tls.Config{}
	}

	var rdb redis.UniversalClient
	if desc.IsCluster {
		addrs := make([]string, 0, len(desc.Hosts))
		for _, h := range desc.Hosts {
			addrs = append(addrs, net.JoinHostPort(h.HostName, h.Port))
		}
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:     addrs,
			Password:  desc.Password,
			TLSConfig: tlsConfig,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:      net.JoinHostPort(desc.Host.HostName, desc.Host.Port),
			Password:  desc.Password,
			DB:        desc.DB,
			TLSConfig: tlsConfig,
		})
	}

	return &storeClient{name: name, rdb: rdb, cluster: desc.IsCluster}, nil
}

// wrapErr maps a transport failure to StoreUnavailable. redis.Nil never
// reaches this function; absent keys are handled by the callers.
func wrapErr(store string, err error) error {
	return errors.Wrap(err, errors.ErrCodeStoreUnavailable,
		fmt.Sprintf("store %s unavailable", store))
}

// Connect builds a client per logical store from the topology and verifies
// each with a ping. On any failure every already-opened connection is closed.
func Connect(topo config.StoreTopology, cfg config.StoresConfig, log logging.Logger) (*MultiStore, error) {
	ms := &MultiStore{
		stores:    map[string]*storeClient{},
		batchSize: cfg.BatchSize,
		blockSize: cfg.BlockSize,
		opTimeout: cfg.OpTimeout,
		logger:    log,
	}

	topo.Override(cfg.Host, cfg.Port)

	for _, name := range config.StoreNames {
		sc, err := newStoreClient(name, topo[name])
		if err != nil {
			ms.Close()
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = sc.rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			sc.rdb.Close()
			ms.Close()
			return nil, wrapErr(name, err)
		}
		ms.stores[name] = sc
	}

	log.Info("Connected to stores",
		logging.Int("stores", len(ms.stores)),
		logging.Int("batch_size", cfg.BatchSize),
	)
	return ms, nil
}
