package app

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/sapsync/internal/health"
	"github.com/vladislavdragonenkov/sapsync/internal/market"
	"github.com/vladislavdragonenkov/sapsync/internal/metrics"
	"github.com/vladislavdragonenkov/sapsync/internal/notify"
	"github.com/vladislavdragonenkov/sapsync/internal/sap"
	"github.com/vladislavdragonenkov/sapsync/internal/service/dispatcher"
	"github.com/vladislavdragonenkov/sapsync/internal/service/intake"
	"github.com/vladislavdragonenkov/sapsync/internal/service/workflow"
	"github.com/vladislavdragonenkov/sapsync/internal/storage/memory"
	"github.com/vladislavdragonenkov/sapsync/internal/version"
)

// resultHistory — последние результаты задач в памяти процесса.
type resultHistory interface {
	domain.ResultSink
	List(limit int) []domain.TaskRecord
	Stats() memory.ResultStats
}

// relayDeps — внешние зависимости, которые Run подключает до сборки графа.
type relayDeps struct {
	Logger        *log.Entry
	Sinks         []domain.ResultSink
	Notifiers     []domain.Notifier
	ClientOptions []sap.ClientOption
	Metrics       *metrics.TaskMetrics
	Clock         func() time.Time
}

// relay — собранный граф: очередь, рынки, сценарии, диспетчер, приём задач.
type relay struct {
	queue      *memory.TaskQueue
	registry   *market.Registry
	router     *workflow.Router
	dispatcher *dispatcher.Dispatcher
	intake     *intake.Service
	results    resultHistory
	notifier   domain.Notifier
	health     *healthcheck.Handler
}

func buildRelay(cfg Config, deps relayDeps) (*relay, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	loc, err := time.LoadLocation(cfg.InvoicesTimeZone)
	if err != nil {
		return nil, fmt.Errorf("load invoices time zone: %w", err)
	}

	registry := market.NewRegistry(nil, cfg.Markets())
	clientOpts := append([]sap.ClientOption{
		sap.WithTimeout(cfg.HTTPTimeout),
		sap.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		sap.WithClientLogger(logger.WithField("component", "sap-client")),
	}, deps.ClientOptions...)
	client := sap.NewClient(clientOpts...)

	for _, mc := range cfg.Markets() {
		handler, err := newMarketHandler(cfg, mc, client, loc, logger)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(handler); err != nil {
			return nil, fmt.Errorf("register market %s: %w", mc.Code, err)
		}
		logger.WithField("market", mc.Code).Info("market handler registered")
	}

	wfOpts := []workflow.Option{
		workflow.WithLocation(loc),
		workflow.WithDefaultMarket(cfg.DefaultMarket),
		workflow.WithClock(clock),
	}
	router := workflow.NewRouter(
		workflow.NewBilling(registry, client, append(wfOpts, workflow.WithLogger(logger.WithField("component", "billing")))...),
		workflow.NewCreditNotes(registry, client, append(wfOpts, workflow.WithLogger(logger.WithField("component", "credit-notes")))...),
		workflow.NewBusinessPartners(registry, client, append(wfOpts, workflow.WithLogger(logger.WithField("component", "business-partners")))...),
		workflow.NewCurrencyRates(registry, client, append(wfOpts, workflow.WithLogger(logger.WithField("component", "currency-rates")))...),
	)

	notifier := notify.Multi(append([]domain.Notifier{notify.NewLogNotifier(logger.WithField("component", "notifier"))}, deps.Notifiers...))
	results := memory.NewResultRepository(0)
	taskMetrics := deps.Metrics
	if taskMetrics == nil {
		taskMetrics = metrics.NewTaskMetrics()
	}

	queue := memory.NewTaskQueue()
	d := dispatcher.New(queue, router,
		dispatcher.WithLogger(logger.WithField("component", "dispatcher")),
		dispatcher.WithIdleInterval(cfg.IdleInterval),
		dispatcher.WithNotifier(notifier),
		dispatcher.WithSinks(append([]domain.ResultSink{results}, deps.Sinks...)...),
		dispatcher.WithMetrics(taskMetrics),
		dispatcher.WithMarkets(registry, cfg.DefaultMarket),
		dispatcher.WithClock(clock),
	)
	submissions := intake.NewService(queue, registry,
		intake.WithLogger(logger.WithField("component", "intake")),
		intake.WithNotifier(notifier),
		intake.WithClock(clock),
	)

	health := healthcheck.NewHandler(version.Version())
	health.RegisterChecker("queue", healthcheck.QueueBacklogChecker(queue.Len, cfg.QueueBacklogThreshold))
	health.RegisterChecker("dispatcher", healthcheck.HeartbeatChecker(d.LastHeartbeat, cfg.HeartbeatMaxAge, clock))

	return &relay{
		queue:      queue,
		registry:   registry,
		router:     router,
		dispatcher: d,
		intake:     submissions,
		results:    results,
		notifier:   notifier,
		health:     health,
	}, nil
}

func newMarketHandler(cfg Config, mc domain.MarketConfig, client *sap.Client, loc *time.Location, logger *log.Entry) (*sap.Handler, error) {
	rules, err := sap.RulesFor(mc.Code, loc)
	if err != nil {
		return nil, fmt.Errorf("market %s rules: %w", mc.Code, err)
	}
	mapper, err := sap.NewBusinessPartnerMapper(mc.Code)
	if err != nil {
		return nil, fmt.Errorf("market %s mapper: %w", mc.Code, err)
	}

	marketLogger := logger.WithField("market", mc.Code)
	sessions := sap.NewSessionManager(client, mc, cfg.Credentials(),
		sap.WithSessionTTL(cfg.SessionTTL),
		sap.WithSessionLogger(marketLogger.WithField("component", "sap-session")),
	)
	return sap.NewHandler(mc, client, sessions, rules, mapper,
		sap.WithMaxAccounts(cfg.MaxAccountsPerUser),
		sap.WithHandlerLogger(marketLogger.WithField("component", "sap-handler")),
	), nil
}
