package configs

type Configs struct {
	// App configuration
	AppName               string  `mapstructure:"app_name"`
	AppEnv                string  `mapstructure:"app_env"`
	AppLogLevel           string  `mapstructure:"app_log_level"`
	AppMetricSamplingRate float64 `mapstructure:"app_metric_sampling_rate"`
	AppPort               int     `mapstructure:"app_port"`

	// MySQL configuration
	MysqlDbName         string `mapstructure:"mysql_db_name"`
	MysqlMasterHost     string `mapstructure:"mysql_master_host"`
	MysqlMasterPassword string `mapstructure:"mysql_master_password"`
	MysqlMasterPort     int    `mapstructure:"mysql_master_port"`
	MysqlMasterUsername string `mapstructure:"mysql_master_username"`
	MysqlSlaveHost      string `mapstructure:"mysql_slave_host"`
	MysqlSlavePassword  string `mapstructure:"mysql_slave_password"`
	MysqlSlavePort      int    `mapstructure:"mysql_slave_port"`
	MysqlSlaveUsername  string `mapstructure:"mysql_slave_username"`

	// Scylla configuration
	ScyllaActiveConfIds string `mapstructure:"scylla_active_config_ids"`
	AuditScyllaConfId   int    `mapstructure:"audit_scylla_config_id"`

	// Auth configuration
	JwtSigningKey string `mapstructure:"jwt_signing_key"`

	// SIEM webhook configuration
	SiemWebhookKey string `mapstructure:"siem_webhook_key"`

	// Response backend configuration
	ResponseBackendBaseUrl string `mapstructure:"response_backend_base_url"`
	WorkflowPollIntervalMs int    `mapstructure:"workflow_poll_interval_ms"`

	// Slack configuration
	SlackChannel    string `mapstructure:"slack_channel"`
	SlackWebhookUrl string `mapstructure:"slack_webhook_url"`

	// Threat intel configuration
	AbuseIpdbApiKey      string `mapstructure:"abuseipdb_api_key"`
	AbuseIpdbBaseUrl     string `mapstructure:"abuseipdb_base_url"`
	VirusTotalApiKey     string `mapstructure:"virustotal_api_key"`
	VirusTotalBaseUrl    string `mapstructure:"virustotal_base_url"`
	MalwareBazaarBaseUrl string `mapstructure:"malwarebazaar_base_url"`
	ThreatIntelCacheTtlS int    `mapstructure:"threat_intel_cache_ttl_s"`

	// Scheduler configuration
	ScheduledCronExpression string `mapstructure:"scheduled_cron_expression"`
}
