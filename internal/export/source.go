package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"phonefleet/internal/config"
	"phonefleet/internal/tabular"
)

// ErrUnsupportedDriver reports a database driver the exporter cannot open.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Source is a relational database the exporter can read.
type Source interface {
	Tables(ctx context.Context) ([]string, error)
	Dump(ctx context.Context, table string) (*tabular.Table, error)
	Close() error
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.Database) (Source, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	switch cfg.Driver {
	case "mysql":
		return openMySQL(ctx, cfg)
	case "postgres":
		return openSQL(ctx, "postgres", postgresDSN(cfg), postgresDialect)
	case "sqlite":
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, errors.New("database.path must point at the sqlite snapshot")
		}
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, fmt.Errorf("sqlite snapshot: %w", err)
		}
		return openSQL(ctx, "sqlite", cfg.Path, sqliteDialect)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

func mysqlDSN(cfg config.Database) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), cfg.Name)
	if cfg.TimeoutSeconds > 0 {
		dsn += fmt.Sprintf("&timeout=%ds", cfg.TimeoutSeconds)
	}
	return dsn
}

func postgresDSN(cfg config.Database) string {
	query := url.Values{}
	query.Set("sslmode", "disable")
	if cfg.TimeoutSeconds > 0 {
		query.Set("connect_timeout", strconv.Itoa(cfg.TimeoutSeconds))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func openMySQL(ctx context.Context, cfg config.Database) (Source, error) {
	db, err := gorm.Open(mysql.Open(mysqlDSN(cfg)), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	source := NewGormSource(db)
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping mysql %s: %w", cfg.Host, err)
	}
	return source, nil
}

func openSQL(ctx context.Context, driver, dsn string, d dialect) (Source, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return newSQLSource(db, d), nil
}

// dialect carries the per-engine SQL the exporter needs.
type dialect struct {
	name       string
	listTables string
	quote      func(string) string
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var (
	postgresDialect = dialect{
		name:       "postgres",
		listTables: "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name",
		quote:      quoteDouble,
	}
	sqliteDialect = dialect{
		name:       "sqlite",
		listTables: "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		quote:      quoteDouble,
	}
	mysqlDialect = dialect{
		name:       "mysql",
		listTables: "SHOW TABLES",
		quote:      quoteBacktick,
	}
)

// SQLSource reads tables through database/sql.
type SQLSource struct {
	db      *sql.DB
	dialect dialect
}

func newSQLSource(db *sql.DB, d dialect) *SQLSource {
	return &SQLSource{db: db, dialect: d}
}

// NewPostgresSource wraps an open PostgreSQL handle.
func NewPostgresSource(db *sql.DB) *SQLSource {
	return newSQLSource(db, postgresDialect)
}

// NewSQLiteSource wraps an open SQLite handle.
func NewSQLiteSource(db *sql.DB) *SQLSource {
	return newSQLSource(db, sqliteDialect)
}

// Tables lists the user tables of the database.
func (s *SQLSource) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listTables)
	if err != nil {
		return nil, fmt.Errorf("list %s tables: %w", s.dialect.name, err)
	}
	return scanNames(rows)
}

// Dump reads every row of table.
func (s *SQLSource) Dump(ctx context.Context, table string) (*tabular.Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.dialect.quote(table))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return scanTable(rows)
}

// Close releases the connection pool.
func (s *SQLSource) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GormSource reads MySQL tables through gorm raw queries.
type GormSource struct {
	db      *gorm.DB
	dialect dialect
}

// NewGormSource wraps an open gorm handle.
func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db, dialect: mysqlDialect}
}

// Tables lists the tables of the current schema.
func (s *GormSource) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.WithContext(ctx).Raw(s.dialect.listTables).Rows()
	if err != nil {
		return nil, fmt.Errorf("list mysql tables: %w", err)
	}
	return scanNames(rows)
}

// Dump reads every row of table.
func (s *GormSource) Dump(ctx context.Context, table string) (*tabular.Table, error) {
	rows, err := s.db.WithContext(ctx).Raw("SELECT * FROM " + s.dialect.quote(table)).Rows()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return scanTable(rows)
}

// Close releases the underlying connection pool.
func (s *GormSource) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func scanNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}
	return names, nil
}

func scanTable(rows *sql.Rows) (*tabular.Table, error) {
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	table := &tabular.Table{Header: columns}
	values := make([]any, len(columns))
	targets := make([]any, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = renderValue(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return table, nil
}

// TimestampLayout is the rendering of database timestamps in exported files.
const TimestampLayout = "2006-01-02 15:04:05"

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(TimestampLayout)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
