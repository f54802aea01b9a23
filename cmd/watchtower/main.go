package main

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/alerts"
	auditHandler "github.com/watchtower-soc/watchtower/internal/auditlog/handler"
	auditRouter "github.com/watchtower-soc/watchtower/internal/auditlog/router"
	authHandler "github.com/watchtower-soc/watchtower/internal/auth/handler"
	authRouter "github.com/watchtower-soc/watchtower/internal/auth/router"
	"github.com/watchtower-soc/watchtower/internal/configs"
	incidentHandler "github.com/watchtower-soc/watchtower/internal/incident/handler"
	incidentRouter "github.com/watchtower-soc/watchtower/internal/incident/router"
	"github.com/watchtower-soc/watchtower/internal/middleware"
	"github.com/watchtower-soc/watchtower/internal/repositories/sql/incident"
	"github.com/watchtower-soc/watchtower/internal/response"
	responseHandler "github.com/watchtower-soc/watchtower/internal/response/handler"
	responseRouter "github.com/watchtower-soc/watchtower/internal/response/router"
	"github.com/watchtower-soc/watchtower/internal/threatintel"
	intelHandler "github.com/watchtower-soc/watchtower/internal/threatintel/handler"
	intelRouter "github.com/watchtower-soc/watchtower/internal/threatintel/router"
	"github.com/watchtower-soc/watchtower/pkg/httpframework"
	"github.com/watchtower-soc/watchtower/pkg/infra"
	"github.com/watchtower-soc/watchtower/pkg/logger"
	"github.com/watchtower-soc/watchtower/pkg/metric"
	"github.com/watchtower-soc/watchtower/pkg/scheduler"
)

func main() {
	config := configs.InitConfig()

	// Logger first, everything below logs through it
	logger.Init(config)

	infra.InitDBConnectors(config)

	metric.Init(config)

	authHandler.SetSigningKey(config.JwtSigningKey)

	httpframework.Init(middleware.NewMiddleware().GetMiddleWares()...)

	// Alerting and external clients
	alerts.InitSlackClient(config.SlackWebhookUrl, config.SlackChannel)
	alerts.GetNotifier().Subscribe(alerts.SlackSubscriber(alerts.GetSlackClient()))
	backendClient := response.InitClient(config.ResponseBackendBaseUrl)
	threatintel.InitClients(
		config.AbuseIpdbBaseUrl, config.AbuseIpdbApiKey,
		config.VirusTotalBaseUrl, config.VirusTotalApiKey,
		config.MalwareBazaarBaseUrl,
	)

	// Domain handlers, wired bottom-up
	auditHandler.InitV1AuditHandler(1, config)

	connection, err := infra.SQL.GetConnection()
	if err != nil {
		log.Panic().Err(err).Msg("Failed to get sql connection for incidents")
	}
	incidentRepo, err := incident.NewRepository(connection.(*infra.SQLConnection))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to create incident repository")
	}

	pollInterval := response.DefaultPollInterval
	if config.WorkflowPollIntervalMs > 0 {
		pollInterval = time.Duration(config.WorkflowPollIntervalMs) * time.Millisecond
	}
	responseHandler.InitV1MonitorHandler(backendClient, auditHandler.GetAuditHandler(1), incidentRepo, pollInterval)

	incidentHandler.InitV1IncidentHandler(1, incidentRepo)
	intelHandler.InitV1IntelHandler(1, threatintel.GetClients(), config.ThreatIntelCacheTtlS)

	// Routers
	authRouter.Init()
	incidentRouter.Init()
	responseRouter.Init()
	auditRouter.Init()
	intelRouter.Init()

	scheduler.Init(config)

	port := config.AppPort
	if port == 0 {
		port = 8082
		log.Warn().Int("port", port).Msg("App port not set, defaulting to 8082")
	}
	httpframework.Instance().Run(":" + strconv.Itoa(port))
}
