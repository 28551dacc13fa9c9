// Package mysql is the MySQL/MariaDB catalog backend.
package mysql

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"media-directory/internal/logging"
	"media-directory/internal/storage"
	"media-directory/internal/storage/sqldb"
)

const backendName = "mysql"

// Config holds the connection settings.
type Config struct {
	// DSN, when set, replaces the individual fields below. The catalog's
	// session settings are added to it.
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// MaxConns caps the connection pool; 0 sizes it from the CPU count.
	MaxConns        int
	ConnectAttempts uint
}

// FormatDSN renders the driver DSN for cfg.
func FormatDSN(cfg Config) (string, error) {
	mc := mysql.NewConfig()
	if cfg.DSN != "" {
		parsed, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", err
		}
		mc = parsed
	} else {
		host, port := cfg.Host, cfg.Port
		if host == "" {
			host = "localhost"
		}
		if port == 0 {
			port = 3306
		}
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.DBName = cfg.Database
	}

	mc.ParseTime = true
	mc.MultiStatements = false
	mc.Collation = "utf8mb4_general_ci"
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	// Reserved object id 0 must be insertable into the AUTO_INCREMENT column.
	mc.Params["sql_mode"] = "'NO_AUTO_VALUE_ON_ZERO'"
	return mc.FormatDSN(), nil
}

// Quote renders s as a MySQL string literal. Backslashes are escapes in
// MySQL's default mode, so they are doubled along with quotes.
func Quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

// errorCode returns the server error number.
func errorCode(err error) string {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return strconv.Itoa(int(me.Number))
	}
	return ""
}

// Dialect returns the MySQL dialect.
func Dialect() sqldb.Dialect {
	return sqldb.Dialect{
		Name:      backendName,
		Quote:     Quote,
		ErrorCode: errorCode,
	}
}

// Open connects, creating the catalog schema on an empty database.
func Open(ctx context.Context, cfg Config) (*sqldb.Backend, error) {
	dsn, err := FormatDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqldb.Connect(ctx, backendName, dsn, sqldb.ConnectOptions{
		MaxConns: cfg.MaxConns,
		Attempts: cfg.ConnectAttempts,
		Delay:    time.Second,
	})
	if err != nil {
		return nil, err
	}

	b := sqldb.New(db, Dialect())
	create := append(append([]string{}, schema...), storage.SeedStatements()...)
	if err := b.Bootstrap(ctx, existsQuery, create); err != nil {
		_ = b.Close()
		return nil, err
	}
	logging.Info("MySQL catalog ready")
	return b, nil
}

const existsQuery = "SELECT COUNT(*) FROM information_schema.tables " +
	"WHERE table_schema = DATABASE() AND table_name = 'mt_internal_setting'"

var schema = []string{
	`CREATE TABLE mt_cds_object (
		id BIGINT NOT NULL AUTO_INCREMENT,
		ref_id BIGINT DEFAULT NULL,
		parent_id BIGINT NOT NULL DEFAULT 0,
		object_type INT NOT NULL,
		is_virtual TINYINT NOT NULL DEFAULT 0,
		upnp_class VARCHAR(80) DEFAULT NULL,
		dc_title VARCHAR(255) DEFAULT NULL,
		is_restricted TINYINT NOT NULL DEFAULT 0,
		metadata MEDIUMTEXT DEFAULT NULL,
		auxdata MEDIUMTEXT DEFAULT NULL,
		update_id INT NOT NULL DEFAULT 0,
		is_searchable TINYINT NOT NULL DEFAULT 0,
		location TEXT DEFAULT NULL,
		mime_type VARCHAR(80) DEFAULT NULL,
		action TEXT DEFAULT NULL,
		state TEXT DEFAULT NULL,
		resources MEDIUMTEXT DEFAULT NULL,
		PRIMARY KEY (id),
		KEY mt_cds_object_parent_id (parent_id, object_type, dc_title),
		KEY mt_cds_object_ref_id (ref_id),
		KEY mt_cds_object_location (location(255))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE mt_metadata (
		id BIGINT NOT NULL AUTO_INCREMENT,
		item_id BIGINT NOT NULL,
		property_name VARCHAR(255) NOT NULL,
		property_value TEXT NOT NULL,
		PRIMARY KEY (id),
		KEY mt_metadata_item_id (item_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE mt_internal_setting (
		setting_name VARCHAR(64) NOT NULL,
		setting_value VARCHAR(255) NOT NULL,
		PRIMARY KEY (setting_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
