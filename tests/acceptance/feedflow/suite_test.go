package feedflow_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	mysqlserver "github.com/dolthub/go-mysql-server/server"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/apohrebniak/paket/internal/article"
	"github.com/apohrebniak/paket/internal/common/config"
	"github.com/apohrebniak/paket/internal/common/redis"
	"github.com/apohrebniak/paket/internal/fetch"
	"github.com/apohrebniak/paket/internal/server"
	"github.com/apohrebniak/paket/internal/store"
)

var testEnv *PaketTestEnvironment

func TestFeedFlowAcceptance(t *testing.T) {
	RegisterFailHandler(Fail)

	suiteConfig, reporterConfig := GinkgoConfiguration()
	suiteConfig.ParallelTotal = 1
	suiteConfig.Timeout = 10 * time.Minute
	reporterConfig.Succinct = true

	RunSpecs(t, "Feed Flow Acceptance Test Suite", suiteConfig, reporterConfig)
}

var _ = BeforeSuite(func() {
	By("Initializing test environment")
	var err error
	testEnv, err = NewPaketTestEnvironment()
	Expect(err).ToNot(HaveOccurred())

	By("Starting test services (MySQL, MiniRedis, origin, Paket)")
	Expect(testEnv.Start()).To(Succeed())

	By("Verifying Paket is healthy")
	Eventually(func() int {
		status, _ := testEnv.Get("/health")
		return status
	}, 10*time.Second, 200*time.Millisecond).Should(Equal(fasthttp.StatusOK))
})

var _ = AfterSuite(func() {
	By("Stopping test services")
	if testEnv != nil {
		testEnv.Stop()
	}
})

var _ = BeforeEach(func() {
	if testEnv != nil {
		Expect(testEnv.Reset()).To(Succeed())
	}
})

// PaketTestEnvironment wires a complete in-process Paket instance against an
// in-memory MySQL server, miniredis and a stub origin that serves the pages
// being saved.
type PaketTestEnvironment struct {
	Logger *zap.Logger

	MySQLServer *mysqlserver.Server
	Store       *store.Store

	MiniRedis   *miniredis.Miniredis
	RedisClient *redis.Client

	Origin     *fasthttp.Server
	OriginAddr string
	OriginHits atomic.Int64

	Paket     *server.Server
	PaketAddr string

	Client *fasthttp.Client
}

func NewPaketTestEnvironment() (*PaketTestEnvironment, error) {
	logger := zap.NewNop()
	if os.Getenv("DEBUG") != "" {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}

	return &PaketTestEnvironment{
		Logger: logger,
		Client: &fasthttp.Client{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}, nil
}

// Start brings up MySQL, miniredis, the origin stub and the Paket server.
func (env *PaketTestEnvironment) Start() error {
	db := memory.NewDatabase("paket")
	db.BaseDatabase.EnablePrimaryKeyIndexes()
	pro := memory.NewDBProvider(db)
	engine := sqle.NewDefault(pro)

	s, err := mysqlserver.NewServer(mysqlserver.Config{
		Protocol: "tcp",
		Address:  "localhost:0",
	}, engine, memory.NewSessionBuilder(pro), nil)
	if err != nil {
		return fmt.Errorf("failed to create mysql server: %w", err)
	}
	env.MySQLServer = s
	go s.Start()

	env.Store, err = store.New(config.StorageConfig{
		Addr:     s.Listener.Addr().String(),
		User:     "root",
		Database: "paket",
	}, env.Logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	if err := env.Store.Initialize(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	env.MiniRedis, err = miniredis.Run()
	if err != nil {
		return fmt.Errorf("failed to start miniredis: %w", err)
	}

	env.RedisClient, err = redis.NewClient(&config.RedisConfig{Addr: env.MiniRedis.Addr()}, env.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to miniredis: %w", err)
	}

	if err := env.startOrigin(); err != nil {
		return err
	}

	return env.startPaket()
}

// startOrigin serves the pages the tests save. Every request counts a hit so
// specs can assert on cache behavior.
func (env *PaketTestEnvironment) startOrigin() error {
	handler := func(ctx *fasthttp.RequestCtx) {
		env.OriginHits.Add(1)

		switch string(ctx.Path()) {
		case "/article":
			ctx.SetContentType("text/html")
			ctx.SetBodyString("<html><head><title>An Example Article</title></head><body>hi</body></html>")
		case "/untitled":
			ctx.SetContentType("text/html")
			ctx.SetBodyString("<html><body>nothing up top</body></html>")
		case "/paper.pdf":
			ctx.SetContentType("application/pdf")
			ctx.SetBodyString("%PDF-1.4")
		case "/moved":
			ctx.Response.Header.Set(fasthttp.HeaderLocation, "/article")
			ctx.SetStatusCode(fasthttp.StatusMovedPermanently)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen for origin: %w", err)
	}
	env.OriginAddr = listener.Addr().String()

	env.Origin = &fasthttp.Server{
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go env.Origin.Serve(listener)

	return nil
}

func (env *PaketTestEnvironment) startPaket() error {
	fetcher := fetch.NewClient(fetch.Config{}, env.Logger)

	titleCache := article.NewTitleCache(env.RedisClient, time.Hour, nil, env.Logger)

	svc := article.NewService(article.Config{
		FetchTimeout:    5 * time.Second,
		FeedName:        "Acceptance Paket",
		FeedDescription: "Saved during tests",
		FeedLink:        "http://paket.test",
		FeedTTL:         60 * 24 * time.Hour,
	}, env.Store, fetcher, titleCache, nil, env.Logger)

	env.Paket = server.NewServer(svc, env.Store, env.Store, env.RedisClient, nil, 30*time.Second, env.Logger)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen for paket: %w", err)
	}
	env.PaketAddr = listener.Addr().String()

	srv := &fasthttp.Server{
		Handler:      env.Paket.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go srv.Serve(listener)

	return nil
}

// Reset wipes the stored articles, stats and cached titles between specs.
func (env *PaketTestEnvironment) Reset() error {
	ctx := context.Background()
	if _, err := env.Store.DeleteExpired(ctx, time.Now().UTC().Add(24*time.Hour)); err != nil {
		return err
	}
	env.MiniRedis.FlushAll()
	env.OriginHits.Store(0)
	return nil
}

func (env *PaketTestEnvironment) Stop() {
	if env.RedisClient != nil {
		env.RedisClient.Close()
	}
	if env.MiniRedis != nil {
		env.MiniRedis.Close()
	}
	if env.Store != nil {
		env.Store.Close()
	}
	if env.MySQLServer != nil {
		env.MySQLServer.Close()
	}
	if env.Origin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		env.Origin.ShutdownWithContext(shutdownCtx)
	}
	if env.Logger != nil {
		env.Logger.Sync()
	}
}

// OriginURL builds an absolute URL pointing at the stub origin.
func (env *PaketTestEnvironment) OriginURL(path string) string {
	return "http://" + env.OriginAddr + path
}

// Get performs a GET against the Paket server.
func (env *PaketTestEnvironment) Get(path string) (int, string) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + env.PaketAddr + path)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := env.Client.Do(req, resp); err != nil {
		return 0, ""
	}
	return resp.StatusCode(), string(resp.Body())
}

// SubmitForm sends a form-encoded request to the Paket server.
func (env *PaketTestEnvironment) SubmitForm(method, path string, form map[string]string) (int, string, string) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + env.PaketAddr + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/x-www-form-urlencoded")

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	for k, v := range form {
		args.Set(k, v)
	}
	req.SetBody(args.QueryString())

	if err := env.Client.Do(req, resp); err != nil {
		return 0, "", ""
	}
	location := string(resp.Header.Peek(fasthttp.HeaderLocation))
	return resp.StatusCode(), string(resp.Body()), location
}
