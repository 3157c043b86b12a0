// Command sqlwarden validates a SQL query against a YAML security policy and
// exits 0 when the query is acceptable, 1 when it is rejected and 2 on usage
// or configuration errors. The query is taken from the command line, or from
// stdin when no arguments are given:
//
//	sqlwarden "SELECT id FROM users WHERE id = 1"
//	echo "SELECT * FROM users" | SQLWARDEN_POLICY=policy.yaml sqlwarden
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"github.com/marketconnect/sqlwarden"
	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

type appConfig struct {
	// PolicyPath points at the YAML security policy. When the file does not
	// exist the guard runs with the default (schema-less) policy.
	PolicyPath string `env:"SQLWARDEN_POLICY" env-default:"policy.yaml"`

	Guard sqlwarden.Config
}

func main() {
	os.Exit(run())
}

func run() int {
	var cfg appConfig
	cfg.Guard = sqlwarden.DefaultConfig()
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "sqlwarden: read environment: %v\n", err)
		return 2
	}

	logger := zap.NewNop()
	if cfg.Guard.LogQueries {
		l, err := zap.NewProduction()
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqlwarden: init logger: %v\n", err)
			return 2
		}
		defer l.Sync() //nolint:errcheck
		logger = l
	}

	policy, err := loadPolicy(cfg.PolicyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlwarden: %v\n", err)
		return 2
	}

	query, err := readQuery(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlwarden: %v\n", err)
		return 2
	}

	guard, err := sqlwarden.New(policy, cfg.Guard, sqlwarden.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlwarden: %v\n", err)
		return 2
	}

	ok, err := guard.ValidateQuery(query)
	if ok {
		fmt.Println("OK")
		return 0
	}
	if kind, isViolation := violation.KindOf(err); isViolation {
		fmt.Printf("REJECTED [%s]: %v\n", kind, err)
	} else if err != nil {
		fmt.Printf("REJECTED: %v\n", err)
	} else {
		fmt.Println("REJECTED")
	}
	return 1
}

func loadPolicy(path string) (*schema.SecurityPolicy, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		policy := schema.NewSecurityPolicy()
		return &policy, nil
	}
	return schema.LoadFile(path)
}

func readQuery(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read query from stdin: %w", err)
	}
	query := strings.TrimSpace(string(data))
	if query == "" {
		return "", fmt.Errorf("no query given (pass it as an argument or on stdin)")
	}
	return query, nil
}
