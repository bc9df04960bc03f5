package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	// EnvPrefix is stripped from environment keys before they are mapped onto
	// config paths, e.g. HH_DB_PATH -> db.path.
	EnvPrefix string = "HH_"

	EnvKeyDBType       string = "HH_DB_TYPE"
	EnvKeyDBPath       string = "HH_DB_PATH"
	EnvKeyHttpHostPort string = "HH_HTTP_HOST_PORT"
	EnvKeyGrpcHostPort string = "HH_GRPC_HOST_PORT"
	EnvKeyLimiterRate  string = "HH_LIMITER_RATE"
	EnvKeyLimiterBurst string = "HH_LIMITER_BURST"
	EnvKeyRedisAddr    string = "HH_REDIS_ADDR"
	EnvKeyMqttBroker   string = "HH_MQTT_BROKER"

	LoggerNameHouseholdCore  string = "household_core"
	LoggerNameStorage        string = "storage"
	LoggerNameCache          string = "cache"
	LoggerNameRestfulServer  string = "restful_server"
	LoggerNameGrpcServer     string = "grpc_server"
	LoggerNameMqttSubscriber string = "mqtt_subscriber"

	LoggerFieldCategory       string = "category"
	LoggerCategoryRegistry    string = "registry"
	LoggerCategoryTracker     string = "tracker"
	LoggerCategoryAggregation string = "aggregation"
	LoggerCategoryIngest      string = "ingest"
	LoggerCategoryActivation  string = "activation"
	LoggerFieldHousehold      string = "household"
	LoggerFieldHouseholdID    string = "household_id"
)
