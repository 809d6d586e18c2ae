package config

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultTestPath is the default test path
	DefaultTestPath = "."
	// DefaultPrefix is the method name prefix that marks a test
	DefaultPrefix = "test_"
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = "storage"
	// DefaultConfigFile is read from the project path when present
	DefaultConfigFile = "ctr.yaml"
	// DefaultStore is the storage backend used for run results
	DefaultStore = StoreJSON
)

const (
	StoreJSON  = "json"
	StoreMySQL = "mysql"
)

// DefaultPathsToIgnore are the default directories to ignore when walking namespaces
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	"testdata",
	"storage",
}
