package config

const (
	EnvPrefix = "VINOTECA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv            = "VINOTECA_APP_ENV"
	EnvPort              = "VINOTECA_APP_PORT"
	EnvGCPProjectID      = "VINOTECA_GCP_PROJECT_ID"
	EnvGCSBucket         = "VINOTECA_GCS_BUCKET_NAME"
	EnvRedisURL          = "VINOTECA_REDIS_URL"
	EnvMPAccessToken     = "VINOTECA_MP_ACCESS_TOKEN"
	EnvMPProductionToken = "VINOTECA_MP_PRODUCTION_ACCESS_TOKEN"
	EnvAdminEmails       = "VINOTECA_FIREBASE_ADMIN_EMAILS"
)
