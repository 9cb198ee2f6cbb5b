package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"travinhgo-backend/internal/config"
	"travinhgo-backend/internal/util"
)

// PreparedStatements holds the statements the repositories actually use
type PreparedStatements struct {
	GetIdentityByID      *gocql.Query
	GetIdentityByContact *gocql.Query

	CreateSessionByHash     *gocql.Query
	CreateSessionByIdentity *gocql.Query
	GetSessionByHash        *gocql.Query
	ListSessionsByIdentity  *gocql.Query
	DeactivateByHash        *gocql.Query
	DeactivateByIdentity    *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.Mutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.GetIdentityByID = s.Session.Query(`
        SELECT identity_bucket, identity_id, phone_hash, email_hash, role, is_active, created_at
        FROM identities WHERE identity_bucket = ? AND identity_id = ?`)

	prepared.GetIdentityByContact = s.Session.Query(`
        SELECT identity_bucket, identity_id FROM contact_to_identity WHERE contact_hash = ?`)

	prepared.CreateSessionByHash = s.Session.Query(`
        INSERT INTO sessions_by_hash (
            session_hash, identity_id, device_info, ip_address,
            created_at, refresh_expire_at, is_active
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreateSessionByIdentity = s.Session.Query(`
        INSERT INTO sessions_by_identity (
            identity_id, created_at, session_hash, device_info,
            ip_address, refresh_expire_at, is_active
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetSessionByHash = s.Session.Query(`
        SELECT session_hash, identity_id, device_info, ip_address,
               created_at, refresh_expire_at, is_active
        FROM sessions_by_hash WHERE session_hash = ?`)

	prepared.ListSessionsByIdentity = s.Session.Query(`
        SELECT identity_id, created_at, session_hash, device_info,
               ip_address, refresh_expire_at, is_active
        FROM sessions_by_identity WHERE identity_id = ?`)

	prepared.DeactivateByHash = s.Session.Query(`
        UPDATE sessions_by_hash SET is_active = false WHERE session_hash = ?`)

	prepared.DeactivateByIdentity = s.Session.Query(`
        UPDATE sessions_by_identity SET is_active = false
        WHERE identity_id = ? AND created_at = ? AND session_hash = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func (s *ScyllaClient) ExecuteWithRetry(query *gocql.Query, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := query.Exec(); err != nil {
			lastErr = err
			if i < maxRetries {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}

func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Scan(dest...); err != nil {
			lastErr = err
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
