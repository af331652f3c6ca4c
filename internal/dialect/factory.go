package dialect

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/litemigrate/internal/config"
)

// GetDialect returns the Dialect for a target driver name.
func GetDialect(driver, schemaName string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case config.DriverPostgres, "postgresql", "pgsql":
		return NewPostgres(schemaName), nil
	case config.DriverMySQL:
		return &MysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported target driver %q", driver)
	}
}

// Drivers lists the target drivers GetDialect accepts, by canonical name.
func Drivers() []string {
	return []string{config.DriverPostgres, config.DriverMySQL}
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
