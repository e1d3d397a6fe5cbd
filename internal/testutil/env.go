package testutil

import "testing"

// EnvKeys lists every variable the binary reads.
var EnvKeys = []string{
	"INPUT_PATH", "OUTPUT_PATH", "FILTER_FIELD", "FILTER_VALUE", "GROUP_BY_FIELD",
	"DISSOLVE_KEEP", "COUNT_FIELD", "REPAIR_GEOMETRY", "SHOW_PLOT", "PLOT_WIDTH",
	"PLOT_HEIGHT", "LOG_LEVEL", "LOG_FORMAT", "DB_TABLE", "DB_HOST", "DB_PORT",
	"DB_SERVICE", "DB_USERNAME", "DB_PASSWORD", "DB_WALLET_LOCATION",
}

// ClearEnv blanks every variable in EnvKeys for the duration of t.
func ClearEnv(t *testing.T) {
	t.Helper()
	for _, k := range EnvKeys {
		t.Setenv(k, "")
	}
}
