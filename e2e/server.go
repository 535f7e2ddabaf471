package e2e

import (
	"collab-lab/infrastructure/api"
	"collab-lab/infrastructure/ws"
	"collab-lab/moderation"
	"collab-lab/observability"
	"collab-lab/repositories"
	"collab-lab/runtime"
	"collab-lab/runtime/workers"
	"collab-lab/services"
	"collab-lab/sink"
	"context"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

// inProcessServer is the whole server wired on in-memory badger and bluge.
type inProcessServer struct {
	http   *httptest.Server
	cancel context.CancelFunc
	done   chan struct{}
	db     *badger.DB
	writer *bluge.Writer
}

func startInProcessServer() (*inProcessServer, error) {
	log := logs.GetLoggerFromLevel(slog.LevelInfo)
	gin.SetMode(gin.TestMode)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, err
	}
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	data, err := runtime.NewCensoredLoader(runtime.CensoredFS).LoadAll(runtime.CensoredDir)
	if err != nil {
		return nil, err
	}
	moderator, err := moderation.NewModerator(data.Words, '*', log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	registry := runtime.NewRegistry()
	messages := repositories.NewMessageRepository(db, log, nil)
	index := repositories.NewMessageIndex(writer, log)
	gateway := runtime.NewGateway(log, registry, runtime.NewDispatcher(log, registry, metrics),
		sink.NewMessageLog(log, messages, index, &moderator), metrics, 256, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	sup := workers.NewSupervisor(log, 100*time.Millisecond)
	sup.Add(
		gateway,
		workers.NewHeartbeatWorker(log, registry, metrics, time.Second),
		workers.NewChannelCapacityWorker(log, []workers.NamedChannel{{Name: "gateway", Channel: gateway.Inbox()}},
			metrics, time.Second),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.Run(ctx)
	}()

	socket := ws.NewServer(log, gateway, nil, ws.Config{ConnectionBufferSize: 64, AllowedOrigins: []string{"*"}})
	service := services.NewCollaborationService(registry, messages, repositories.NewUserRepository(db), index, 0)
	server := httptest.NewServer(api.NewRouter(log, service, socket.Handle, reg))

	return &inProcessServer{http: server, cancel: cancel, done: done, db: db, writer: writer}, nil
}

func (s *inProcessServer) URL() string {
	return s.http.URL
}

func (s *inProcessServer) Close() {
	s.http.Close()
	s.cancel()
	<-s.done
	_ = s.writer.Close()
	_ = s.db.Close()
}
