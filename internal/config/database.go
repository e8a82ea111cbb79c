package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"starload/internal/storage"
)

// Database describes one warehouse connection. ConnectionString turns it
// into the DSN of the selected driver; it is the only place DSNs are built.
type Database struct {
	Driver                 string        `mapstructure:"db_driver"`
	DSN                    string        `mapstructure:"db_dsn"`
	Host                   string        `mapstructure:"db_host"`
	Port                   int           `mapstructure:"db_port"`
	Name                   string        `mapstructure:"db_name"`
	User                   string        `mapstructure:"db_user"`
	Password               string        `mapstructure:"db_password"`
	Path                   string        `mapstructure:"db_path"`
	TrustedConnection      bool          `mapstructure:"db_trusted_connection"`
	Encrypt                bool          `mapstructure:"db_encrypt"`
	TrustServerCertificate bool          `mapstructure:"db_trust_server_certificate"`
	ConnectTimeout         time.Duration `mapstructure:"db_connect_timeout"`
	SSLMode                string        `mapstructure:"db_sslmode"`
	MaxConns               int           `mapstructure:"db_max_conns"`
}

// NormalizeDriver maps driver aliases onto storage kinds.
func NormalizeDriver(d string) string {
	switch d = strings.ToLower(strings.TrimSpace(d)); d {
	case "postgresql", "pg", "pgx":
		return "postgres"
	case "sqlserver", "azuresql":
		return "mssql"
	case "sqlite3":
		return "sqlite"
	default:
		return d
	}
}

func defaultPort(driver string) int {
	switch driver {
	case "postgres":
		return 5432
	case "mssql":
		return 1433
	case "mysql":
		return 3306
	}
	return 0
}

func (d Database) hostPort() string {
	port := d.Port
	if port == 0 {
		port = defaultPort(NormalizeDriver(d.Driver))
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

func (d Database) timeoutSeconds() int {
	if d.ConnectTimeout <= 0 {
		return 0
	}
	s := int(d.ConnectTimeout / time.Second)
	if s == 0 {
		s = 1
	}
	return s
}

// ConnectionString returns the DSN for d.Driver. A non-empty DSN is
// returned as is. Passwords are escaped.
func (d Database) ConnectionString() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}
	switch NormalizeDriver(d.Driver) {
	case "postgres":
		return d.postgresDSN(), nil
	case "mssql":
		return d.mssqlDSN(), nil
	case "mysql":
		return d.mysqlDSN(), nil
	case "sqlite":
		if d.Path != "" {
			return d.Path, nil
		}
		if d.Name != "" {
			return d.Name + ".db", nil
		}
		return "", fmt.Errorf("config: sqlite needs DB_PATH")
	case "":
		return "", fmt.Errorf("config: DB_DRIVER is required")
	default:
		return "", fmt.Errorf("config: unsupported DB_DRIVER %q", d.Driver)
	}
}

func (d Database) postgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   d.hostPort(),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if s := d.timeoutSeconds(); s > 0 {
		q.Set("connect_timeout", strconv.Itoa(s))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// mssqlDSN mirrors the Azure SQL settings: encrypt, server certificate
// trust and a connection timeout. A trusted connection carries no
// credentials.
func (d Database) mssqlDSN() string {
	u := url.URL{Scheme: "sqlserver", Host: d.hostPort()}
	if !d.TrustedConnection && d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	q := url.Values{}
	if d.Name != "" {
		q.Set("database", d.Name)
	}
	q.Set("encrypt", strconv.FormatBool(d.Encrypt))
	q.Set("TrustServerCertificate", strconv.FormatBool(d.TrustServerCertificate))
	if s := d.timeoutSeconds(); s > 0 {
		q.Set("connection timeout", strconv.Itoa(s))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (d Database) mysqlDSN() string {
	c := mysqldrv.NewConfig()
	c.User = d.User
	c.Passwd = d.Password
	c.Net = "tcp"
	c.Addr = d.hostPort()
	c.DBName = d.Name
	c.ParseTime = true
	c.Timeout = d.ConnectTimeout
	return c.FormatDSN()
}

// StorageConfig returns the storage.New input for d.
func (d Database) StorageConfig() (storage.Config, error) {
	dsn, err := d.ConnectionString()
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Kind:           NormalizeDriver(d.Driver),
		DSN:            dsn,
		MaxConns:       d.MaxConns,
		ConnectTimeout: d.ConnectTimeout,
	}, nil
}

// Redacted returns the connection string with the password masked, for logs.
func (d Database) Redacted() string {
	dsn, err := d.ConnectionString()
	if err != nil {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
		return u.String()
	}
	if d.Password != "" {
		dsn = strings.ReplaceAll(dsn, d.Password, "****")
	}
	return dsn
}
