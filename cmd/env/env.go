package env

const (
	// Prefix is the prefix for all ratehist ENV variables
	Prefix = "RATEHIST"

	// DBURLSuffix is the ENV variable suffix for the DB connection string
	DBURLSuffix = "_DB_URL"
)
